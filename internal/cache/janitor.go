package cache

import (
	"context"
	"log/slog"
	"time"
)

// DefaultJanitorInterval is how often expired entries are purged
const DefaultJanitorInterval = 15 * time.Minute

// ExpiredCleaner is implemented by *PGCache
type ExpiredCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Janitor periodically deletes expired cache_entries rows. Get only removes
// the entries it happens to read.
type Janitor struct {
	cleaner  ExpiredCleaner
	logger   *slog.Logger
	interval time.Duration
}

func NewJanitor(cleaner ExpiredCleaner, logger *slog.Logger, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}

	return &Janitor{
		cleaner:  cleaner,
		logger:   logger,
		interval: interval,
	}
}

// Run sweeps until ctx is done
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started", slog.Duration("interval", j.interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	deleted, err := j.cleaner.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Error("failed to delete expired cache entries", slog.Any("error", err))
		}
		return
	}
	if deleted > 0 {
		j.logger.Debug("deleted expired cache entries", slog.Int64("count", deleted))
	}
}
