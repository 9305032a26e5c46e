package supervisor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"bobbin/internal/aria2"
	"bobbin/internal/config"
	"bobbin/internal/extractor"
	"bobbin/internal/merge"
)

// recorder captures a single ordered trace across every fake.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, event := range r.list() {
		if strings.HasPrefix(event, prefix) {
			n++
		}
	}
	return n
}

func (r *recorder) index(event string) int {
	for i, got := range r.list() {
		if got == event {
			return i
		}
	}
	return -1
}

type addCall struct {
	uris []string
	opts aria2.AddOptions
}

type fakeClient struct {
	rec *recorder

	mu       sync.Mutex
	adds     []addCall
	addErrAt map[int]error
	tasks    []aria2.Task
	fetchErr error
	// fetchErrs are returned by successive fetches before fetchErr applies.
	fetchErrs []error
	// fetchHook runs before a fetch returns; it receives the 1-based call number.
	fetchHook func(call int)
	fetches   int
	forceErr  error
	clearErr error
}

func newFakeClient(rec *recorder) *fakeClient {
	return &fakeClient{rec: rec, addErrAt: map[int]error{}}
}

func (c *fakeClient) AddURI(_ context.Context, uris []string, opts aria2.AddOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adds = append(c.adds, addCall{uris: uris, opts: opts})
	n := len(c.adds)
	c.rec.record("add:%s", opts.Out)
	if err := c.addErrAt[n]; err != nil {
		return "", err
	}
	return fmt.Sprintf("gid%d", n), nil
}

func (c *fakeClient) Pause(_ context.Context, gid string) error {
	c.rec.record("pause:%s", gid)
	return nil
}

func (c *fakeClient) Unpause(_ context.Context, gid string) error {
	c.rec.record("unpause:%s", gid)
	return nil
}

func (c *fakeClient) ForceRemove(_ context.Context, gid string) error {
	c.rec.record("forceRemove:%s", gid)
	return c.forceErr
}

func (c *fakeClient) RemoveDownloadResult(_ context.Context, gid string) error {
	c.rec.record("clear:%s", gid)
	return c.clearErr
}

func (c *fakeClient) FetchAll(context.Context) ([]aria2.Task, error) {
	c.rec.record("fetch")
	c.mu.Lock()
	c.fetches++
	call, hook := c.fetches, c.fetchHook
	tasks := append([]aria2.Task(nil), c.tasks...)
	err := c.fetchErr
	if len(c.fetchErrs) > 0 {
		err = c.fetchErrs[0]
		c.fetchErrs = c.fetchErrs[1:]
	}
	c.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *fakeClient) setTasks(tasks ...aria2.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = tasks
}

func (c *fakeClient) addCalls() []addCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]addCall(nil), c.adds...)
}

// recordingFS performs real operations and records them.
type recordingFS struct {
	rec *recorder
}

func (f recordingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	f.rec.record("fs.readDir:%s", name)
	return os.ReadDir(name)
}

func (f recordingFS) RemoveAll(path string) error {
	f.rec.record("fs.removeAll:%s", path)
	return os.RemoveAll(path)
}

func (f recordingFS) Remove(path string) error {
	f.rec.record("fs.remove:%s", path)
	return os.Remove(path)
}

// flakyFS fails the first readDirFailures directory listings.
type flakyFS struct {
	recordingFS
	mu              sync.Mutex
	readDirFailures int
}

func (f *flakyFS) ReadDir(name string) ([]fs.DirEntry, error) {
	f.mu.Lock()
	fail := f.readDirFailures > 0
	if fail {
		f.readDirFailures--
	}
	f.mu.Unlock()
	if fail {
		f.rec.record("fs.readDir.failed:%s", name)
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return f.recordingFS.ReadDir(name)
}

type resolveResult struct {
	media extractor.Media
	err   error
}

type fakeResolver struct {
	rec       *recorder
	available bool
	results   map[extractor.Quality]resolveResult
}

func (r *fakeResolver) Available() bool { return r.available }

func (r *fakeResolver) Resolve(_ context.Context, rawURL string, quality extractor.Quality) (extractor.Media, error) {
	r.rec.record("resolve:%s", quality)
	res, ok := r.results[quality]
	if !ok {
		return extractor.Media{}, extractor.ErrNoMatchingFormat
	}
	return res.media, res.err
}

type fakeMerger struct {
	rec       *recorder
	available bool
	err       error
	// writeOutput creates the output file without touching the sources.
	writeOutput bool
}

func (m *fakeMerger) Available() bool { return m.available }

func (m *fakeMerger) Merge(_ context.Context, req merge.Request) (merge.Result, error) {
	m.rec.record("merge:%s", req.OutputPath)
	if m.err != nil {
		return merge.Result{}, m.err
	}
	if m.writeOutput {
		if err := os.WriteFile(req.OutputPath, []byte("merged"), 0o644); err != nil {
			return merge.Result{}, err
		}
	}
	return merge.Result{OutputPath: req.OutputPath}, nil
}

type fakeDaemon struct {
	rec *recorder
	err error
}

func (d *fakeDaemon) EnsureRunning(context.Context) error {
	d.rec.record("ensureRunning")
	return d.err
}

func newTestSupervisor(t *testing.T, cfg *config.Config, deps Dependencies, rec *recorder) *Supervisor {
	t.Helper()
	if deps.FS == nil {
		deps.FS = recordingFS{rec: rec}
	}
	s, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	s.sleep = func(ctx context.Context, d time.Duration) error {
		rec.record("settle")
		return ctx.Err()
	}
	return s
}
