package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bobbin/internal/aria2"
	"bobbin/internal/config"
	"bobbin/internal/daemonctl"
	"bobbin/internal/extractor"
	"bobbin/internal/logging"
	"bobbin/internal/merge"
	"bobbin/internal/pairs"
	"bobbin/internal/supervisor"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	runtimeOnce sync.Once
	runtime     *runtime
	runtimeErr  error
}

// runtime holds the collaborators built for one CLI invocation.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	client     *aria2.Client
	daemon     *daemonctl.Manager
	resolver   *extractor.Resolver
	merger     *merge.Merger
	pairs      *pairs.Store
	supervisor *supervisor.Supervisor
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// ensureRuntime wires the client, daemon manager, extractor, merger, pair
// registry, and supervisor from configuration. A registry that cannot be
// opened is logged and replaced by an empty one.
func (c *commandContext) ensureRuntime() (*runtime, error) {
	c.runtimeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.runtimeErr = err
			return
		}
		logger, err := c.newLogger(cfg)
		if err != nil {
			c.runtimeErr = err
			return
		}

		rt := &runtime{cfg: cfg, logger: logger}
		rt.client = aria2.NewFromConfig(cfg)
		rt.daemon = daemonctl.NewFromConfig(cfg, rt.client, logger)
		rt.resolver = extractor.NewFromConfig(cfg, logger)
		rt.merger = merge.NewFromConfig(cfg, logger)
		store, err := pairs.OpenFromConfig(cfg)
		if err != nil {
			logging.WarnWithHint(logger, "pair registry unavailable", "pairs_unavailable",
				"split downloads fall back to filename pairing", logging.Error(err))
		}
		rt.pairs = store

		sup, err := supervisor.New(cfg, supervisor.Dependencies{
			Client:   rt.client,
			Daemon:   rt.daemon,
			Resolver: rt.resolver,
			Merger:   rt.merger,
			Pairs:    rt.pairs,
			Logger:   logger,
		})
		if err != nil {
			c.runtimeErr = err
			return
		}
		rt.supervisor = sup
		c.runtime = rt
	})
	return c.runtime, c.runtimeErr
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)}
	if c.verbose != nil && *c.verbose {
		outputs = append(outputs, "stderr")
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// withRuntime runs fn against the wired runtime and releases it afterwards.
func (c *commandContext) withRuntime(fn func(*runtime) error) error {
	rt, err := c.ensureRuntime()
	if err != nil {
		return err
	}
	defer c.close()
	return fn(rt)
}

func (c *commandContext) close() {
	if c.runtime == nil {
		return
	}
	c.runtime.supervisor.Close()
	if err := c.runtime.pairs.Close(); err != nil {
		c.runtime.logger.Debug("close pair registry", logging.Error(err))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
