package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"bobbin/internal/config"
	"bobbin/internal/deps"
	"bobbin/internal/logging"
	"bobbin/internal/services"
)

// DefaultTimeout bounds a single metadata extraction.
const DefaultTimeout = 30 * time.Second

type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Resolver runs yt-dlp to resolve page URLs.
type Resolver struct {
	binary   string
	timeout  time.Duration
	logger   *slog.Logger
	run      runFunc
	lookPath func(string) (string, error)
}

// New constructs a resolver. A non-positive timeout selects DefaultTimeout.
func New(binary string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		binary:   binary,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "extractor"),
		run:      runCommand,
		lookPath: exec.LookPath,
	}
}

// NewFromConfig constructs a resolver from the [extractor] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Resolver {
	return New(cfg.Extractor.Binary, cfg.ExtractorTimeout(), logger)
}

// Available reports whether yt-dlp resolves on PATH.
func (r *Resolver) Available() bool {
	_, err := r.lookPath(r.binary)
	return err == nil
}

// Resolve extracts metadata for rawURL and selects a format for quality.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, quality Quality) (Media, error) {
	if !r.Available() {
		return Media{}, services.Wrap(services.ErrNotInstalled, "extractor", "resolve",
			fmt.Sprintf("%s not found while resolving %s; %s", r.binary, rawURL, deps.InstallHint(r.binary)), nil)
	}
	if quality == "" {
		quality = QualityBest
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	stdout, stderr, err := r.run(runCtx, r.binary, "--dump-json", "--no-playlist", "--no-warnings", rawURL)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Media{}, services.Wrap(services.ErrTimeout, "extractor", "resolve",
				fmt.Sprintf("%s did not finish within %s for %s", r.binary, r.timeout, rawURL), nil)
		}
		if ctx.Err() != nil {
			return Media{}, ctx.Err()
		}
		detail := strings.TrimSpace(string(stderr))
		if detail == "" {
			detail = err.Error()
		}
		return Media{}, services.Wrap(services.ErrExternalTool, "extractor", "resolve", detail, err)
	}

	var meta info
	if err := json.NewDecoder(bytes.NewReader(stdout)).Decode(&meta); err != nil {
		return Media{}, services.Wrap(services.ErrParse, "extractor", "resolve", "decode "+r.binary+" output", err)
	}

	media, err := selectMedia(meta, quality)
	if err != nil {
		return Media{}, err
	}
	r.logger.Debug("video resolved",
		logging.String("url", rawURL),
		logging.String("quality", string(quality)),
		logging.Bool("split", media.Split),
		logging.String("filename", media.Filename),
		logging.Any("elapsed", time.Since(started)),
	)
	return media, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
