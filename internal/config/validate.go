package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAria2(); err != nil {
		return err
	}
	if err := c.validateExtractor(); err != nil {
		return err
	}
	if err := c.validateSupervisor(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAria2() error {
	if c.Aria2.RPCPort < 1 || c.Aria2.RPCPort > 65535 {
		return fmt.Errorf("aria2.rpc_port must be between 1 and 65535, got %d", c.Aria2.RPCPort)
	}
	if c.Aria2.RPCTimeoutSeconds <= 0 {
		return errors.New("aria2.rpc_timeout_seconds must be positive")
	}
	if c.Aria2.MaxConcurrentDownloads <= 0 {
		return errors.New("aria2.max_concurrent_downloads must be positive")
	}
	if c.Aria2.SeedRatio < 0 {
		return errors.New("aria2.seed_ratio must be >= 0")
	}
	return nil
}

func (c *Config) validateExtractor() error {
	if c.Extractor.TimeoutSeconds <= 0 {
		return errors.New("extractor.timeout_seconds must be positive")
	}
	if !slices.Contains(Qualities, c.Extractor.Quality) {
		return fmt.Errorf("extractor.quality must be one of %s, got %q", strings.Join(Qualities, ", "), c.Extractor.Quality)
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.PollIntervalSeconds <= 0 {
		return errors.New("supervisor.poll_interval_seconds must be positive")
	}
	if c.Supervisor.MergeIntervalSeconds <= 0 {
		return errors.New("supervisor.merge_interval_seconds must be positive")
	}
	if c.Supervisor.SpawnSettleMillis < 0 {
		return errors.New("supervisor.spawn_settle_millis must be >= 0")
	}
	if c.Supervisor.RemovalSettleMillis < 0 {
		return errors.New("supervisor.removal_settle_millis must be >= 0")
	}
	if c.Supervisor.PostAddRefreshMillis < 0 {
		return errors.New("supervisor.post_add_refresh_millis must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
