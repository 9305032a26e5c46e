// Package merge stream-copies a finished video-only file and audio-only file
// into a single container with ffmpeg.
package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"bobbin/internal/config"
	"bobbin/internal/deps"
	"bobbin/internal/logging"
	"bobbin/internal/media/ffprobe"
	"bobbin/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) (stderr []byte, err error)

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Request describes one merge.
type Request struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
}

// Result reports the outcome of a merge.
type Result struct {
	OutputPath     string
	RemovedSources []string
	Verified       bool
	VideoStreams   int
	AudioStreams   int
}

// Merger runs ffmpeg stream-copy merges.
type Merger struct {
	ffmpeg   string
	ffprobe  string
	verify   bool
	logger   *slog.Logger
	run      commandRunner
	probe    probeFunc
	lookPath func(string) (string, error)
}

// New constructs a merger. An empty ffprobe binary disables verification.
func New(ffmpegBinary, ffprobeBinary string, verify bool, logger *slog.Logger) *Merger {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Merger{
		ffmpeg:   ffmpegBinary,
		ffprobe:  strings.TrimSpace(ffprobeBinary),
		verify:   verify && strings.TrimSpace(ffprobeBinary) != "",
		logger:   logging.NewComponentLogger(logger, "merge"),
		run:      runFFmpeg,
		probe:    ffprobe.Inspect,
		lookPath: exec.LookPath,
	}
}

// NewFromConfig constructs a merger from the [merge] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Merger {
	return New(cfg.Merge.FFmpegBinary, cfg.Merge.FFprobeBinary, cfg.Merge.VerifyOutput, logger)
}

// Available reports whether ffmpeg resolves on PATH.
func (m *Merger) Available() bool {
	_, err := m.lookPath(m.ffmpeg)
	return err == nil
}

// Merge runs `ffmpeg -y -i video -i audio -c copy output`. On success both
// sources are removed best-effort; removal failures do not fail the merge.
// On failure any partial output is removed and the sources are kept.
func (m *Merger) Merge(ctx context.Context, req Request) (Result, error) {
	if req.VideoPath == "" || req.AudioPath == "" || req.OutputPath == "" {
		return Result{}, services.Wrap(services.ErrValidation, "merge", "merge", "video, audio, and output paths are required", nil)
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error",
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-c", "copy",
		req.OutputPath,
	}
	m.logger.Debug("executing ffmpeg",
		logging.String("video", req.VideoPath),
		logging.String("audio", req.AudioPath),
		logging.String("output", req.OutputPath),
	)

	stderr, err := m.run(ctx, m.ffmpeg, args...)
	if err != nil {
		if isSpawnFailure(err) {
			return Result{}, services.Wrap(services.ErrNotInstalled, "merge", "merge",
				fmt.Sprintf("%s could not be started; %s", m.ffmpeg, deps.InstallHint(m.ffmpeg)), err)
		}
		// ffmpeg -y creates the output before failing; a leftover would
		// read as a finished merge and the pair would never be retried.
		m.discardPartial(req.OutputPath)
		detail := strings.TrimSpace(string(stderr))
		if detail == "" {
			detail = "ffmpeg exited with an error"
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "merge", "merge", detail, err)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "merge", "merge", "ffmpeg did not produce output", err)
	}

	result := Result{OutputPath: req.OutputPath}
	if m.verify {
		m.verifyOutput(ctx, &result)
	}

	for _, source := range []string{req.VideoPath, req.AudioPath} {
		if err := os.Remove(source); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithHint(m.logger, "failed to remove merge source", "merge_source_cleanup_failed",
				"remove the file manually", logging.String("path", source), logging.Error(err))
			continue
		}
		result.RemovedSources = append(result.RemovedSources, source)
	}

	m.logger.Info("merge completed",
		logging.String("output", req.OutputPath),
		logging.Bool("verified", result.Verified),
		logging.String(logging.FieldEventType, "merge_completed"),
	)
	return result, nil
}

func (m *Merger) discardPartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithHint(m.logger, "failed to remove partial merge output", "merge_partial_cleanup_failed",
			"delete the output file so the pair can be merged again", logging.String("path", path), logging.Error(err))
	}
}

func (m *Merger) verifyOutput(ctx context.Context, result *Result) {
	if _, err := m.lookPath(m.ffprobe); err != nil {
		m.logger.Debug("ffprobe unavailable; skipping merge verification")
		return
	}
	probed, err := m.probe(ctx, m.ffprobe, result.OutputPath)
	if err != nil {
		logging.WarnWithHint(m.logger, "merge verification failed", "merge_verify_failed",
			"inspect the output with ffprobe", logging.String("output", result.OutputPath), logging.Error(err))
		return
	}
	result.Verified = true
	result.VideoStreams = probed.VideoStreamCount()
	result.AudioStreams = probed.AudioStreamCount()
	if result.VideoStreams == 0 || result.AudioStreams == 0 {
		logging.WarnWithHint(m.logger, "merged output is missing a stream", "merge_stream_missing",
			"re-download the affected source",
			logging.String("output", result.OutputPath),
			logging.Int("video_streams", result.VideoStreams),
			logging.Int("audio_streams", result.AudioStreams),
		)
	}
}

func isSpawnFailure(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

func runFFmpeg(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
