package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bobbin/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Settle and refresh delays are zeroed so supervisor flows run without
// sleeping; options can restore them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Aria2.RPCPort = 16800
	cfgVal.Supervisor.SpawnSettleMillis = 0
	cfgVal.Supervisor.RemovalSettleMillis = 0
	cfgVal.Supervisor.PostAddRefreshMillis = 0
	cfgVal.Supervisor.AutoStartDaemon = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithSecret sets the aria2 RPC secret on the test config.
func WithSecret(secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Aria2.RPCSecret = secret
	}
}

// WithRPCPort overrides the aria2 RPC port.
func WithRPCPort(port int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Aria2.RPCPort = port
	}
}

// WithAutoStart toggles on-demand daemon spawning.
func WithAutoStart(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Supervisor.AutoStartDaemon = enabled
	}
}

// WithQuality sets the default extractor quality.
func WithQuality(quality string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Extractor.Quality = quality
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default bobbin external
// binaries are stubbed. The config's binary fields are left as bare names so
// lookups resolve through PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"aria2c", "yt-dlp", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
		b.cfg.Aria2.Binary = "aria2c"
		b.cfg.Extractor.Binary = "yt-dlp"
		b.cfg.Merge.FFmpegBinary = "ffmpeg"
		b.cfg.Merge.FFprobeBinary = "ffprobe"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DownloadDir)
}
