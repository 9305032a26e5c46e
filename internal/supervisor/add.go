package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bobbin/internal/aria2"
	"bobbin/internal/extractor"
	"bobbin/internal/logging"
	"bobbin/internal/pairs"
	"bobbin/internal/services"
)

// AddResult describes what Add submitted to the daemon.
type AddResult struct {
	Kind     Kind
	GIDs     []string
	Filename string
	Split    bool
	PairID   uuid.UUID
	// Degraded is set when a split result was replaced by the 720p tier
	// because no merge tool is available.
	Degraded bool
}

// Add validates raw, resolves it when it points at a video host, and submits
// it to the daemon. Split results become two tasks sharing a base name.
func (s *Supervisor) Add(ctx context.Context, raw string, quality extractor.Quality) (AddResult, error) {
	raw = strings.TrimSpace(raw)
	if !ValidateURL(raw) {
		return AddResult{}, services.Wrap(services.ErrValidation, "supervisor", "add", fmt.Sprintf("not an http(s) URL or magnet URI: %q", raw), nil)
	}
	if quality == "" {
		quality = extractor.QualityBest
	}
	ctx = services.WithOperation(ctx, "add")
	result := AddResult{Kind: Classify(raw)}
	logger := s.logger.With(logging.String("kind", string(result.Kind)), logging.String("quality", string(quality)))

	if err := s.ensureDaemon(ctx); err != nil {
		return result, err
	}

	target := raw
	if result.Kind == KindVideo {
		if !s.resolverAvailable() {
			logging.WarnWithHint(logger, "extractor unavailable; submitting page URL directly", "extractor_unavailable", extractorHint())
		} else {
			media, err := s.resolver.Resolve(ctx, raw, quality)
			if err != nil {
				return result, err
			}
			if media.Split {
				if s.mergeAvailable() {
					return s.addSplit(ctx, result, media)
				}
				media, err = s.resolveDegraded(ctx, raw)
				if err != nil {
					return result, err
				}
				result.Degraded = true
				logging.WarnWithHint(logger, "merge tool unavailable; using 720p single-file format", "split_degraded", mergeHint())
			}
			target = media.URL
			result.Filename = media.Filename
		}
	}

	gid, err := s.client.AddURI(ctx, []string{target}, aria2.AddOptions{Dir: s.downloadDir, Out: result.Filename})
	if err != nil {
		return result, err
	}
	result.GIDs = []string{gid}
	logger.Info("download added",
		logging.String(logging.FieldEventType, "download_added"),
		logging.String(logging.FieldGID, gid),
		logging.String("filename", result.Filename),
	)
	s.refreshAfterAdd(ctx)
	return result, nil
}

func (s *Supervisor) addSplit(ctx context.Context, result AddResult, media extractor.Media) (AddResult, error) {
	result.Split = true
	result.Filename = media.Filename
	videoName := pairs.VideoName(media.Filename)
	audioName := pairs.AudioName(media.Filename)

	videoGID, err := s.client.AddURI(ctx, []string{media.VideoURL}, aria2.AddOptions{Dir: s.downloadDir, Out: videoName})
	if err != nil {
		return result, err
	}
	result.GIDs = []string{videoGID}
	audioGID, err := s.client.AddURI(ctx, []string{media.AudioURL}, aria2.AddOptions{Dir: s.downloadDir, Out: audioName})
	if err != nil {
		s.refreshAfterAdd(ctx)
		return result, services.Wrap(services.ErrPartial, "supervisor", "add", fmt.Sprintf("video queued as %s but audio submission failed", videoGID), err)
	}
	result.GIDs = append(result.GIDs, audioGID)

	pair, err := s.pairs.Record(ctx, s.downloadDir, media.Filename, videoGID, audioGID)
	if err != nil {
		s.logger.Warn("pair registry record failed",
			logging.String(logging.FieldEventType, "pair_record_failed"),
			logging.String("base", media.Filename),
			logging.Error(err),
		)
	} else {
		result.PairID = pair.ID
	}
	s.logger.Info("split download added",
		logging.String(logging.FieldEventType, "split_added"),
		logging.String("video_gid", videoGID),
		logging.String("audio_gid", audioGID),
		logging.String("base", media.Filename),
	)
	s.refreshAfterAdd(ctx)
	return result, nil
}

// resolveDegraded re-resolves at the 720p single-file tier. A failure cites
// both the missing merge tool and the fallback error.
func (s *Supervisor) resolveDegraded(ctx context.Context, raw string) (extractor.Media, error) {
	media, err := s.resolver.Resolve(ctx, raw, extractor.Quality720p)
	if err == nil && media.Split {
		err = extractor.ErrNoMatchingFormat
	}
	if err != nil {
		return extractor.Media{}, fmt.Errorf("split format needs ffmpeg to merge (not available) and 720p fallback failed: %w", err)
	}
	return media, nil
}

func (s *Supervisor) ensureDaemon(ctx context.Context) error {
	if !s.autoStart || s.daemon == nil {
		return nil
	}
	return s.daemon.EnsureRunning(ctx)
}

func (s *Supervisor) refreshAfterAdd(ctx context.Context) {
	s.refreshLogged(ctx, "add")
	s.scheduleRefresh(s.postAddRefresh, "add_metadata")
}

func extractorHint() string {
	return "install yt-dlp to resolve video-host pages to direct media"
}

func mergeHint() string {
	return "install ffmpeg to download the best separate video and audio streams"
}
