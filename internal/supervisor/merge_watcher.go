package supervisor

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"bobbin/internal/logging"
	"bobbin/internal/merge"
	"bobbin/internal/pairs"
)

func (s *Supervisor) mergeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.mergeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.MergeTick(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("merge watcher tick failed",
					logging.String(logging.FieldEventType, "merge_tick_failed"),
					logging.Error(err),
				)
			}
		}
	}
}

// MergeTick scans the download directory once and merges every split pair
// whose halves are both fully written and whose output does not exist yet.
// It returns the number of pairs merged. Individual merge failures are logged
// and do not stop the scan.
func (s *Supervisor) MergeTick(ctx context.Context) (int, error) {
	if !s.mergeAvailable() {
		return 0, nil
	}
	entries, err := s.fs.ReadDir(s.downloadDir)
	if err != nil {
		return 0, err
	}
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = true
	}

	// Merges run to completion even if the session ends mid-tick.
	mergeCtx := context.WithoutCancel(ctx)
	merged := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), pairs.VideoSuffix) {
			continue
		}
		videoName := entry.Name()
		base := strings.TrimSuffix(videoName, pairs.VideoSuffix)
		if base == "" {
			continue
		}
		audioName := pairs.AudioName(base)
		switch {
		case !present[audioName]:
			continue
		case present[pairs.ControlPath(videoName)], present[pairs.ControlPath(audioName)]:
			continue
		case present[pairs.OutputName(base)]:
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if s.mergePair(mergeCtx, base) {
			merged++
		}
	}
	if merged > 0 {
		s.refreshLogged(mergeCtx, "merge")
	}
	return merged, nil
}

func (s *Supervisor) mergePair(ctx context.Context, base string) bool {
	req := merge.Request{
		VideoPath:  filepath.Join(s.downloadDir, pairs.VideoName(base)),
		AudioPath:  filepath.Join(s.downloadDir, pairs.AudioName(base)),
		OutputPath: filepath.Join(s.downloadDir, pairs.OutputName(base)),
	}
	result, err := s.merger.Merge(ctx, req)
	if err != nil {
		s.logger.Error("merge failed",
			logging.String(logging.FieldEventType, "merge_failed"),
			logging.String("base", base),
			logging.Error(err),
		)
		return false
	}
	s.logger.Info("split download merged",
		logging.String(logging.FieldEventType, "merge_completed"),
		logging.String("output", result.OutputPath),
	)

	pair, ok, err := s.pairs.FindByBase(ctx, s.downloadDir, base)
	if err == nil && ok {
		err = s.pairs.MarkMerged(ctx, pair.ID)
	}
	if err != nil {
		s.logger.Warn("pair registry update failed",
			logging.String(logging.FieldEventType, "pair_update_failed"),
			logging.String("base", base),
			logging.Error(err),
		)
	}
	return true
}
