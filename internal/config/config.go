package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Aria2 contains configuration for the managed aria2c daemon.
type Aria2 struct {
	Binary                 string  `toml:"binary"`
	RPCPort                int     `toml:"rpc_port"`
	RPCSecret              string  `toml:"rpc_secret"`
	RPCTimeoutSeconds      int     `toml:"rpc_timeout_seconds"`
	MaxConcurrentDownloads int     `toml:"max_concurrent_downloads"`
	DisableDHT             bool    `toml:"disable_dht"`
	DisablePeerExchange    bool    `toml:"disable_peer_exchange"`
	SeedRatio              float64 `toml:"seed_ratio"` // 0 leaves aria2's default
	CheckCertificate       bool    `toml:"check_certificate"`
	DisableCORS            bool    `toml:"disable_cors"`
}

// Extractor contains configuration for the yt-dlp metadata extractor.
type Extractor struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Quality        string `toml:"quality"`
}

// Merge contains configuration for stream-copy merges of split downloads.
type Merge struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	VerifyOutput  bool   `toml:"verify_output"`
}

// Supervisor contains timing knobs for the polling loops and settle delays.
type Supervisor struct {
	PollIntervalSeconds  int  `toml:"poll_interval_seconds"`
	MergeIntervalSeconds int  `toml:"merge_interval_seconds"`
	SpawnSettleMillis    int  `toml:"spawn_settle_millis"`
	RemovalSettleMillis  int  `toml:"removal_settle_millis"`
	PostAddRefreshMillis int  `toml:"post_add_refresh_millis"`
	AutoStartDaemon      bool `toml:"auto_start_daemon"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for bobbin.
//
// Configuration sections by subsystem:
//   - Paths: download, state, and log directories
//   - Aria2: daemon binary, RPC endpoint, and spawn flags
//   - Extractor: yt-dlp binary, timeout, and default quality
//   - Merge: ffmpeg/ffprobe binaries for split downloads
//   - Supervisor: poll/merge intervals and settle delays
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Aria2      Aria2      `toml:"aria2"`
	Extractor  Extractor  `toml:"extractor"`
	Merge      Merge      `toml:"merge"`
	Supervisor Supervisor `toml:"supervisor"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bobbin/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bobbin.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the download, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DownloadDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RPCURL returns the loopback JSON-RPC endpoint of the managed daemon.
func (c *Config) RPCURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/jsonrpc", c.Aria2.RPCPort)
}

// RPCTimeout returns the per-call RPC bound.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.Aria2.RPCTimeoutSeconds) * time.Second
}

// ExtractorTimeout returns the bound applied to a single metadata extraction.
func (c *Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.Extractor.TimeoutSeconds) * time.Second
}

// PollInterval returns the task status poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Supervisor.PollIntervalSeconds) * time.Second
}

// MergeInterval returns the merge watcher period.
func (c *Config) MergeInterval() time.Duration {
	return time.Duration(c.Supervisor.MergeIntervalSeconds) * time.Second
}

// SpawnSettleDelay returns how long to wait after spawning the daemon before probing it.
func (c *Config) SpawnSettleDelay() time.Duration {
	return time.Duration(c.Supervisor.SpawnSettleMillis) * time.Millisecond
}

// RemovalSettleDelay returns how long removal waits between force-stop and cleanup.
func (c *Config) RemovalSettleDelay() time.Duration {
	return time.Duration(c.Supervisor.RemovalSettleMillis) * time.Millisecond
}

// PostAddRefreshDelay returns the delay before the second post-add refresh.
func (c *Config) PostAddRefreshDelay() time.Duration {
	return time.Duration(c.Supervisor.PostAddRefreshMillis) * time.Millisecond
}

// PairsDBPath returns the split-pair registry location.
func (c *Config) PairsDBPath() string {
	return filepath.Join(c.Paths.StateDir, "pairs.db")
}

// SpawnLockPath returns the lock file guarding daemon spawns.
func (c *Config) SpawnLockPath() string {
	return filepath.Join(c.Paths.StateDir, "aria2-spawn.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
