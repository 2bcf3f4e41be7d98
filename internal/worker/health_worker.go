package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"adeptify/internal/metrics"
)

// HealthWorker periodically pings the database and exports the result as a gauge.
type HealthWorker struct {
	ping     func(ctx context.Context) error
	logger   *zap.Logger
	interval time.Duration
	healthy  bool
}

// NewHealthWorker creates a health worker.
func NewHealthWorker(ping func(ctx context.Context) error, logger *zap.Logger, interval time.Duration) *HealthWorker {
	return &HealthWorker{
		ping:     ping,
		logger:   logger.Named("health"),
		interval: interval,
		healthy:  true,
	}
}

// Start runs the check loop until ctx is cancelled.
func (w *HealthWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce checks the database once and reports whether it answered.
// Transitions are logged, steady state is not.
func (w *HealthWorker) RunOnce(ctx context.Context) bool {
	err := w.ping(ctx)
	up := err == nil
	metrics.SetDatabaseUp(up)

	switch {
	case !up && w.healthy:
		w.logger.Error("database health check failed", zap.Error(err))
	case up && !w.healthy:
		w.logger.Info("database connection restored")
	}
	w.healthy = up
	return up
}
