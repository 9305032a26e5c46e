package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"bobbin/internal/aria2"
	"bobbin/internal/logging"
	"bobbin/internal/pairs"
	"bobbin/internal/services"
)

// RemovalIntent identifies a task to remove and what to do with its files.
type RemovalIntent struct {
	GID         string
	Status      aria2.Status
	FilePath    string
	Dir         string
	Name        string
	DeleteFiles bool
}

// IntentFor builds a removal intent from a task view.
func IntentFor(view TaskView, deleteFiles bool) RemovalIntent {
	return RemovalIntent{
		GID:         view.GID,
		Status:      view.Status,
		FilePath:    view.FilePath,
		Dir:         view.Dir,
		Name:        view.Name,
		DeleteFiles: deleteFiles,
	}
}

type sibling struct {
	gid    string
	path   string
	status aria2.Status
	known  bool
	pair   *pairs.Pair
}

// Remove runs the removal sequence: stop, settle, clear daemon memory, delete
// files, refresh. Only the final refresh error is returned; every earlier
// step logs its failure and continues.
func (s *Supervisor) Remove(ctx context.Context, intent RemovalIntent) error {
	if strings.TrimSpace(intent.GID) == "" {
		return services.Wrap(services.ErrValidation, "supervisor", "remove", "gid is required", nil)
	}
	ctx = services.WithGID(services.WithOperation(ctx, "remove"), intent.GID)
	logger := logging.WithContext(ctx, s.logger)

	sib := s.findSibling(ctx, intent)

	if !intent.Status.IsTerminal() {
		if err := s.client.ForceRemove(ctx, intent.GID); err != nil {
			logger.Warn("force remove failed", logging.String(logging.FieldEventType, "force_remove_failed"), logging.Error(err))
		}
	}
	if sib.gid != "" && (!sib.known || !sib.status.IsTerminal()) {
		if err := s.client.ForceRemove(ctx, sib.gid); err != nil {
			logger.Debug("sibling force remove failed", logging.String("sibling_gid", sib.gid), logging.Error(err))
		}
	}

	if err := s.sleep(ctx, s.removalSettle); err != nil {
		return err
	}

	if err := s.client.RemoveDownloadResult(ctx, intent.GID); err != nil {
		logger.Warn("clear download result failed", logging.String(logging.FieldEventType, "clear_result_failed"), logging.Error(err))
	}
	if sib.gid != "" {
		if err := s.client.RemoveDownloadResult(ctx, sib.gid); err != nil {
			partial := services.Wrap(services.ErrPartial, "supervisor", "remove", "sibling result not cleared", err)
			logger.Warn("sibling clear failed",
				logging.String(logging.FieldEventType, "sibling_clear_failed"),
				logging.String("sibling_gid", sib.gid),
				logging.String(logging.FieldErrorKind, services.Kind(partial)),
				logging.Error(partial),
			)
		}
	}

	if intent.DeleteFiles {
		targets := []string{primaryTarget(intent)}
		if sib.path != "" {
			targets = append(targets, sib.path)
		}
		for _, target := range targets {
			s.deletePath(logger, intent.Dir, target)
		}
	}

	if sib.pair != nil {
		if err := s.pairs.Delete(ctx, sib.pair.ID); err != nil {
			logger.Warn("pair registry delete failed", logging.String(logging.FieldEventType, "pair_delete_failed"), logging.Error(err))
		}
	}

	logger.Info("download removed",
		logging.String(logging.FieldEventType, "download_removed"),
		logging.Bool("delete_files", intent.DeleteFiles),
		logging.String("sibling_gid", sib.gid),
	)
	return s.Refresh(ctx)
}

// RemoveGID looks gid up in the current snapshot, refreshing once if it is
// missing, and removes it.
func (s *Supervisor) RemoveGID(ctx context.Context, gid string, deleteFiles bool) error {
	view, ok := s.Snapshot().Find(gid)
	if !ok {
		if err := s.Refresh(ctx); err != nil {
			return err
		}
		view, ok = s.Snapshot().Find(gid)
	}
	if !ok {
		return services.Wrap(services.ErrValidation, "supervisor", "remove", fmt.Sprintf("no download with gid %s", gid), nil)
	}
	return s.Remove(ctx, IntentFor(view, deleteFiles))
}

// findSibling prefers the pair registry and falls back to the filename
// convention, which still yields a path when no sibling task is known.
func (s *Supervisor) findSibling(ctx context.Context, intent RemovalIntent) sibling {
	snap := s.Snapshot()
	var sib sibling

	pair, ok, err := s.pairs.FindByGID(ctx, intent.GID)
	if err != nil {
		s.logger.Debug("pair registry lookup failed", logging.Error(err))
	}
	if ok {
		sib.gid, sib.path, _ = pair.Sibling(intent.GID)
		sib.pair = &pair
	} else if dir, base, isVideo := pairs.SplitVideoPath(intent.FilePath); isVideo {
		sib.path = filepath.Join(dir, pairs.AudioName(base))
		if view, found := snap.FindByPath(sib.path); found {
			sib.gid = view.GID
		}
	}
	if sib.gid != "" {
		if view, found := snap.Find(sib.gid); found {
			sib.known = true
			sib.status = view.Status
		}
	}
	return sib
}

// primaryTarget is the task's top-level path: the torrent directory when the
// file lives under Dir/Name, otherwise the file itself.
func primaryTarget(intent RemovalIntent) string {
	if intent.Dir != "" && intent.Name != "" {
		root := filepath.Join(intent.Dir, intent.Name)
		if intent.FilePath == "" || strings.HasPrefix(intent.FilePath, root+string(filepath.Separator)) {
			return root
		}
	}
	return intent.FilePath
}

func (s *Supervisor) deletePath(logger *slog.Logger, dir, target string) {
	target = filepath.Clean(target)
	if target == "." || target == string(filepath.Separator) || s.isDownloadRoot(dir, target) {
		logger.Warn("refusing to delete download root", logging.String("path", target))
		return
	}
	if err := s.fs.RemoveAll(target); err != nil {
		logger.Warn("delete failed",
			logging.String(logging.FieldEventType, "delete_failed"),
			logging.String("path", target),
			logging.Error(err),
		)
	}
	if err := s.fs.Remove(pairs.ControlPath(target)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("control file delete failed", logging.String("path", target), logging.Error(err))
	}
}

func (s *Supervisor) isDownloadRoot(dir, target string) bool {
	for _, root := range []string{dir, s.downloadDir} {
		if root != "" && target == filepath.Clean(root) {
			return true
		}
	}
	return false
}
