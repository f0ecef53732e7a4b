package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionPurger removes sessions that can no longer authenticate.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// StartSessionCleaner purges expired and revoked sessions every interval.
// Sessions are kept for retention after they stop being valid.
// The goroutine exits when ctx is cancelled.
func StartSessionCleaner(
	ctx context.Context,
	purger SessionPurger,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				removed, err := purger.PurgeExpired(ctx, cutoff)
				if err != nil {
					log.Error("failed to clean stale sessions", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned stale sessions", zap.Int64("removed", removed))
				}
			}
		}
	}()
}
