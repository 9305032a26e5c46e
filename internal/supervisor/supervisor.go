package supervisor

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bobbin/internal/aria2"
	"bobbin/internal/config"
	"bobbin/internal/extractor"
	"bobbin/internal/logging"
	"bobbin/internal/merge"
	"bobbin/internal/pairs"
)

// Defaults for the session timings. Configuration overrides them; a zero
// settle or refresh delay disables the wait.
const (
	PostAddRefreshDelay = 1500 * time.Millisecond
	PollInterval        = 5 * time.Second
	MergeInterval       = 5 * time.Second
	RemovalSettleDelay  = 500 * time.Millisecond
)

// Client is the subset of the aria2 RPC surface the supervisor drives.
type Client interface {
	AddURI(ctx context.Context, uris []string, opts aria2.AddOptions) (string, error)
	Pause(ctx context.Context, gid string) error
	Unpause(ctx context.Context, gid string) error
	ForceRemove(ctx context.Context, gid string) error
	RemoveDownloadResult(ctx context.Context, gid string) error
	FetchAll(ctx context.Context) ([]aria2.Task, error)
}

// Daemon brings the aria2 process up on demand.
type Daemon interface {
	EnsureRunning(ctx context.Context) error
}

// Resolver turns a video-host page URL into direct media URLs.
type Resolver interface {
	Available() bool
	Resolve(ctx context.Context, rawURL string, quality extractor.Quality) (extractor.Media, error)
}

// Merger muxes a finished video/audio pair.
type Merger interface {
	Available() bool
	Merge(ctx context.Context, req merge.Request) (merge.Result, error)
}

// PairStore correlates the two tasks of a split download.
type PairStore interface {
	Record(ctx context.Context, dir, base, videoGID, audioGID string) (pairs.Pair, error)
	FindByGID(ctx context.Context, gid string) (pairs.Pair, bool, error)
	FindByBase(ctx context.Context, dir, base string) (pairs.Pair, bool, error)
	MarkMerged(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// FileSystem is the filesystem surface used by the merge watcher and removal.
type FileSystem interface {
	ReadDir(name string) ([]fs.DirEntry, error)
	RemoveAll(path string) error
	Remove(path string) error
}

type osFS struct{}

func (osFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (osFS) RemoveAll(path string) error               { return os.RemoveAll(path) }
func (osFS) Remove(path string) error                  { return os.Remove(path) }

// Dependencies are the collaborators a Supervisor drives. Client is required;
// the rest are optional and degrade the corresponding feature when nil.
type Dependencies struct {
	Client   Client
	Daemon   Daemon
	Resolver Resolver
	Merger   Merger
	Pairs    PairStore
	FS       FileSystem
	Logger   *slog.Logger
}

// Supervisor coordinates one session against the daemon.
type Supervisor struct {
	client   Client
	daemon   Daemon
	resolver Resolver
	merger   Merger
	pairs    PairStore
	fs       FileSystem
	logger   *slog.Logger

	downloadDir    string
	autoStart      bool
	pollInterval   time.Duration
	mergeInterval  time.Duration
	removalSettle  time.Duration
	postAddRefresh time.Duration

	snapshot atomic.Pointer[Snapshot]

	// fetchSeq orders refreshes by when their fetch started; publishMu
	// serializes publication so subscribers never run concurrently and a
	// slow fetch cannot replace a newer snapshot.
	fetchSeq  atomic.Uint64
	publishMu sync.Mutex
	published uint64

	subMu       sync.Mutex
	subscribers []func(Snapshot)

	sessionMu  sync.Mutex
	sessionCtx context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Supervisor from configuration and collaborators.
func New(cfg *config.Config, deps Dependencies) (*Supervisor, error) {
	if cfg == nil {
		return nil, errors.New("supervisor requires configuration")
	}
	if deps.Client == nil {
		return nil, errors.New("supervisor requires an aria2 client")
	}
	if deps.FS == nil {
		deps.FS = osFS{}
	}
	if deps.Pairs == nil {
		// A nil store records nothing and finds nothing.
		deps.Pairs = (*pairs.Store)(nil)
	}
	s := &Supervisor{
		client:         deps.Client,
		daemon:         deps.Daemon,
		resolver:       deps.Resolver,
		merger:         deps.Merger,
		pairs:          deps.Pairs,
		fs:             deps.FS,
		logger:         logging.NewComponentLogger(deps.Logger, "supervisor"),
		downloadDir:    cfg.Paths.DownloadDir,
		autoStart:      cfg.Supervisor.AutoStartDaemon,
		pollInterval:   durationOr(cfg.PollInterval(), PollInterval),
		mergeInterval:  durationOr(cfg.MergeInterval(), MergeInterval),
		removalSettle:  cfg.RemovalSettleDelay(),
		postAddRefresh: cfg.PostAddRefreshDelay(),
		now:            time.Now,
		sleep:          sleepContext,
	}
	return s, nil
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

// DownloadDir returns the directory new downloads are written to.
func (s *Supervisor) DownloadDir() string {
	return s.downloadDir
}

// Start launches the poll loop and, when a merge tool is available, the merge
// watcher. Both stop when ctx is cancelled or Close is called.
func (s *Supervisor) Start(ctx context.Context) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if s.cancel != nil {
		return errors.New("supervisor session already started")
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	s.sessionCtx = sessionCtx
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollLoop(sessionCtx)
	}()

	mergeEnabled := s.mergeAvailable()
	if mergeEnabled {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.mergeLoop(sessionCtx)
		}()
	}
	s.logger.Info("supervisor session started",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String("poll_interval", s.pollInterval.String()),
		logging.Bool("merge_watcher", mergeEnabled),
	)
	return nil
}

// Close ends the session and waits for the loops to return.
func (s *Supervisor) Close() {
	s.sessionMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.sessionCtx = nil
	s.sessionMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("supervisor session stopped", logging.String(logging.FieldEventType, "session_stopped"))
}

// Snapshot returns the last published task list. The zero Snapshot is
// returned before the first successful refresh.
func (s *Supervisor) Snapshot() Snapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}

// OnSnapshot registers fn to be called with every newly published snapshot.
// fn runs while publication is held and must not call Refresh.
func (s *Supervisor) OnSnapshot(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// Refresh fetches the full task list and publishes it as a new snapshot.
// Subscribers are notified one publication at a time. A fetch that completes
// after a later-started one has published is discarded.
func (s *Supervisor) Refresh(ctx context.Context) error {
	seq := s.fetchSeq.Add(1)
	tasks, err := s.client.FetchAll(ctx)
	if err != nil {
		return err
	}
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, newTaskView(task))
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if seq < s.published {
		s.logger.Debug("discarding stale snapshot", logging.String(logging.FieldEventType, "snapshot_stale"))
		return nil
	}
	s.published = seq
	snap := &Snapshot{Tasks: views, FetchedAt: s.now()}
	s.snapshot.Store(snap)

	s.subMu.Lock()
	subscribers := append([]func(Snapshot){}, s.subscribers...)
	s.subMu.Unlock()
	for _, fn := range subscribers {
		fn(*snap)
	}
	return nil
}

// Pause pauses gid and refreshes.
func (s *Supervisor) Pause(ctx context.Context, gid string) error {
	if err := s.client.Pause(ctx, gid); err != nil {
		return err
	}
	s.refreshLogged(ctx, "pause")
	return nil
}

// Resume unpauses gid and refreshes.
func (s *Supervisor) Resume(ctx context.Context, gid string) error {
	if err := s.client.Unpause(ctx, gid); err != nil {
		return err
	}
	s.refreshLogged(ctx, "resume")
	return nil
}

func (s *Supervisor) refreshLogged(ctx context.Context, reason string) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("state refresh failed",
			logging.String(logging.FieldEventType, "refresh_failed"),
			logging.String("reason", reason),
			logging.Error(err),
		)
	}
}

// scheduleRefresh refreshes once after delay when a session is running.
// One-shot callers have no view to update, so nothing is scheduled for them.
func (s *Supervisor) scheduleRefresh(delay time.Duration, reason string) {
	s.sessionMu.Lock()
	ctx := s.sessionCtx
	if ctx == nil {
		s.sessionMu.Unlock()
		return
	}
	s.wg.Add(1)
	s.sessionMu.Unlock()
	go func() {
		defer s.wg.Done()
		if err := s.sleep(ctx, delay); err != nil {
			return
		}
		s.refreshLogged(ctx, reason)
	}()
}

func (s *Supervisor) mergeAvailable() bool {
	return s.merger != nil && s.merger.Available()
}

func (s *Supervisor) resolverAvailable() bool {
	return s.resolver != nil && s.resolver.Available()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
