package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"adeptify/internal/metrics"
	"adeptify/internal/repository"
	"adeptify/internal/service"
)

// CleanupWorker periodically removes expired sessions and activity entries
// past retention.
type CleanupWorker struct {
	recorder      service.ActivityRecorder
	sessions      repository.SessionRepository
	logger        *zap.Logger
	interval      time.Duration
	retentionDays int
	now           func() time.Time
}

// NewCleanupWorker creates a new cleanup worker.
func NewCleanupWorker(
	recorder service.ActivityRecorder,
	sessions repository.SessionRepository,
	logger *zap.Logger,
	interval time.Duration,
	retentionDays int,
) *CleanupWorker {
	return &CleanupWorker{
		recorder:      recorder,
		sessions:      sessions,
		logger:        logger.Named("cleanup"),
		interval:      interval,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Start runs the cleanup loop until ctx is cancelled. The first pass runs immediately.
func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Int("retention_days", w.retentionDays),
	)
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass. Failures are logged; the next pass retries.
func (w *CleanupWorker) RunOnce(ctx context.Context) {
	removed, err := w.sessions.DeleteExpired(ctx, w.now())
	if err != nil {
		w.logger.Error("failed to delete expired sessions", zap.Error(err))
	} else {
		metrics.ObserveCleanup("sessions", removed)
		if removed > 0 {
			w.logger.Info("expired sessions removed", zap.Int64("count", removed))
		}
	}

	if w.retentionDays <= 0 {
		return
	}
	removed, err = w.recorder.Cleanup(ctx, w.retentionDays)
	if err != nil {
		w.logger.Error("failed to clean up activity logs", zap.Error(err))
		return
	}
	w.logger.Debug("activity retention applied", zap.Int64("count", removed))
}
