package supervisor

import (
	"context"
	"errors"
	"time"

	"bobbin/internal/logging"
	"bobbin/internal/services"
)

func (s *Supervisor) pollLoop(ctx context.Context) {
	s.pollTick(ctx)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollTick(ctx)
		}
	}
}

// pollTick refreshes once. Failures are logged and the next tick retries; an
// unreachable daemon is logged at debug so a stopped daemon does not flood
// the log.
func (s *Supervisor) pollTick(ctx context.Context) {
	err := s.Refresh(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}
	if errors.Is(err, services.ErrConnection) {
		s.logger.Debug("daemon unreachable during poll",
			logging.String(logging.FieldEventType, "poll_unreachable"),
			logging.Error(err),
		)
		return
	}
	s.logger.Warn("poll failed",
		logging.String(logging.FieldEventType, "poll_failed"),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
}
