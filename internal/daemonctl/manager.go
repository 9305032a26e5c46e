package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"bobbin/internal/aria2"
	"bobbin/internal/config"
	"bobbin/internal/deps"
	"bobbin/internal/logging"
	"bobbin/internal/services"
)

// State is the daemon lifecycle state.
type State string

const (
	StateNotInstalled State = "not_installed"
	StateStopped      State = "stopped"
	StateStarting     State = "starting"
	StateRunning      State = "running"
	StateStopping     State = "stopping"
)

const (
	// DefaultSettleDelay is how long a fresh spawn gets before the single readiness probe.
	DefaultSettleDelay = 1500 * time.Millisecond
	killGrace          = 2 * time.Second
	lockRetryInterval  = 100 * time.Millisecond
)

// ErrNotRunning reports that Stop found neither a reachable daemon nor a process.
var ErrNotRunning = errors.New("aria2 daemon not running")

// Client is the RPC subset the manager drives.
type Client interface {
	GetVersion(ctx context.Context) (aria2.Version, error)
	Shutdown(ctx context.Context) error
	ForceShutdown(ctx context.Context) error
}

// Handle tracks a daemon spawned by this process.
type Handle struct {
	PID       int
	Options   Options
	StartedAt time.Time
}

// StopResult describes which shutdown step succeeded.
type StopResult struct {
	Method string // shutdown, force_shutdown, sigterm, sigkill
	PID    int
}

// Manager controls one aria2c daemon.
type Manager struct {
	opts        Options
	client      Client
	logger      *slog.Logger
	lockPath    string
	settleDelay time.Duration
	procRoot    string

	lookPath  func(string) (string, error)
	launch    func(binary string, args []string) (int, error)
	terminate func(pid int) error
	kill      func(pid int) error
	alive     func(pid int) bool
	sleep     func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	handle    *Handle
	transient State
}

// New constructs a manager. lockPath may be empty to disable the spawn lock.
func New(opts Options, client Client, lockPath string, settleDelay time.Duration, logger *slog.Logger) *Manager {
	if opts.Binary == "" {
		opts.Binary = "aria2c"
	}
	if settleDelay < 0 {
		settleDelay = DefaultSettleDelay
	}
	return &Manager{
		opts:        opts,
		client:      client,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		lockPath:    lockPath,
		settleDelay: settleDelay,
		procRoot:    "/proc",
		lookPath:    exec.LookPath,
		launch:      launchDetached,
		terminate:   terminateProcess,
		kill:        killProcess,
		alive:       processAlive,
		sleep:       sleepContext,
	}
}

// NewFromConfig constructs a manager for the configured daemon.
func NewFromConfig(cfg *config.Config, client Client, logger *slog.Logger) *Manager {
	return New(OptionsFromConfig(cfg), client, cfg.SpawnLockPath(), cfg.SpawnSettleDelay(), logger)
}

// Options returns the spawn configuration.
func (m *Manager) Options() Options {
	return m.opts
}

// Handle returns the tracked handle of a daemon spawned by this manager, if any.
func (m *Manager) Handle() (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return Handle{}, false
	}
	return *m.handle, true
}

// Installed reports whether the daemon binary resolves on PATH.
func (m *Manager) Installed() bool {
	_, err := m.lookPath(m.opts.Binary)
	return err == nil
}

// Running reports RPC reachability.
func (m *Manager) Running(ctx context.Context) bool {
	_, err := m.client.GetVersion(ctx)
	return err == nil
}

// Version returns the daemon version when reachable.
func (m *Manager) Version(ctx context.Context) (string, error) {
	v, err := m.client.GetVersion(ctx)
	if err != nil {
		return "", err
	}
	return v.Version, nil
}

// DiscoverPID scans the process table for the daemon binary.
func (m *Manager) DiscoverPID() (int, bool) {
	return findPIDByName(m.procRoot, m.opts.Binary)
}

// State reports the current lifecycle state.
func (m *Manager) State(ctx context.Context) State {
	m.mu.Lock()
	transient := m.transient
	m.mu.Unlock()
	if transient != "" {
		return transient
	}
	if !m.Installed() {
		return StateNotInstalled
	}
	if m.Running(ctx) {
		return StateRunning
	}
	return StateStopped
}

// EnsureRunning spawns the daemon unless it is already reachable.
func (m *Manager) EnsureRunning(ctx context.Context) error {
	if m.Running(ctx) {
		return nil
	}
	return m.Spawn(ctx)
}

// Spawn starts a detached daemon, waits the settle delay, and probes once.
func (m *Manager) Spawn(ctx context.Context) error {
	if !m.Installed() {
		return services.Wrap(services.ErrNotInstalled, "daemon", "spawn",
			fmt.Sprintf("%s not found on PATH; %s", m.opts.Binary, deps.InstallHint(m.opts.Binary)), nil)
	}

	unlock, err := m.acquireSpawnLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	// Another invocation may have spawned while we waited on the lock.
	if m.Running(ctx) {
		m.logger.Debug("daemon became reachable while waiting for spawn lock")
		return nil
	}

	m.setTransient(StateStarting)
	defer m.setTransient("")

	args := m.opts.Args()
	pid, err := m.launch(m.opts.Binary, args)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "daemon", "spawn", "launch "+m.opts.Binary, err)
	}
	m.mu.Lock()
	m.handle = &Handle{PID: pid, Options: m.opts, StartedAt: time.Now()}
	m.mu.Unlock()
	m.logger.Info("daemon spawned",
		logging.Int("pid", pid),
		logging.Int("rpc_port", m.opts.RPCPort),
		logging.String(logging.FieldEventType, "daemon_spawned"),
	)

	if err := m.sleep(ctx, m.settleDelay); err != nil {
		return err
	}
	if _, err := m.client.GetVersion(ctx); err != nil {
		return services.Wrap(services.ErrConnection, "daemon", "spawn",
			fmt.Sprintf("daemon not reachable %s after spawn", m.settleDelay), err)
	}
	return nil
}

func (m *Manager) acquireSpawnLock(ctx context.Context) (func(), error) {
	if m.lockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(m.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(m.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire spawn lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire spawn lock: %s is held", m.lockPath)
	}
	return func() { _ = lock.Unlock() }, nil
}

// Stop shuts the daemon down through the fallback chain. Only the last
// step's failure is returned; the tracked handle is always cleared.
func (m *Manager) Stop(ctx context.Context) (StopResult, error) {
	m.setTransient(StateStopping)
	defer func() {
		m.mu.Lock()
		m.handle = nil
		m.transient = ""
		m.mu.Unlock()
	}()

	err := m.client.Shutdown(ctx)
	if err == nil {
		return StopResult{Method: "shutdown"}, nil
	}
	m.logger.Debug("graceful shutdown failed", logging.Error(err))

	err = m.client.ForceShutdown(ctx)
	if err == nil {
		return StopResult{Method: "force_shutdown"}, nil
	}
	m.logger.Debug("forced shutdown failed", logging.Error(err))

	pid := 0
	if h, ok := m.Handle(); ok && m.alive(h.PID) {
		pid = h.PID
	} else if discovered, ok := m.DiscoverPID(); ok {
		pid = discovered
	}
	if pid == 0 {
		return StopResult{}, ErrNotRunning
	}

	if err := m.terminate(pid); err != nil {
		m.logger.Debug("sigterm failed", logging.Int("pid", pid), logging.Error(err))
	} else {
		_ = m.sleep(ctx, killGrace)
		if !m.alive(pid) {
			return StopResult{Method: "sigterm", PID: pid}, nil
		}
	}

	if err := m.kill(pid); err != nil {
		return StopResult{PID: pid}, services.Wrap(services.ErrExternalTool, "daemon", "stop",
			fmt.Sprintf("kill pid %d", pid), err)
	}
	logging.WarnWithHint(m.logger, "daemon killed", "daemon_killed", "check aria2 logs for an unresponsive RPC server",
		logging.Int("pid", pid))
	return StopResult{Method: "sigkill", PID: pid}, nil
}

func (m *Manager) setTransient(state State) {
	m.mu.Lock()
	m.transient = state
	m.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
