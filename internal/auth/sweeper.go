package auth

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when SweepSessions gets a non-positive interval.
const DefaultSweepInterval = time.Hour

// SweepSessions deletes expired sessions now and then every interval until
// ctx is cancelled. Failures are logged and the loop keeps going.
func (s *Service) SweepSessions(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started", "interval", interval)

	s.sweepOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	start := time.Now()
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("session sweep failed", "error", err)
		}
		return
	}
	slog.Debug("session sweep completed",
		"sessions_removed", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
