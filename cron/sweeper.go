package cron

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// staleSessionAge evicts sessions nobody has touched for a day, whatever their status.
const staleSessionAge = 24 * time.Hour

// SessionSweeper is the part of the session store the sweeper needs.
type SessionSweeper interface {
	Sweep(now time.Time, retention, staleAfter time.Duration) []string
}

// StartSessionSweeper evicts finished and abandoned sessions every interval until ctx is done.
func StartSessionSweeper(ctx context.Context, store SessionSweeper, interval, retention time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		logger.Info("Session sweeper disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sweepOnce(store, now, retention, logger)
			}
		}
	}()
}

func sweepOnce(store SessionSweeper, now time.Time, retention time.Duration, logger *zap.Logger) int {
	evicted := store.Sweep(now, retention, staleSessionAge)
	if len(evicted) > 0 {
		logger.Info("Evicted booking sessions", zap.Int("count", len(evicted)), zap.Strings("bookingIds", evicted))
	}
	return len(evicted)
}
