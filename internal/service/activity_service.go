package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"adeptify/internal/events"
	"adeptify/internal/metrics"
	"adeptify/internal/model"
	"adeptify/internal/repository"
)

const (
	activityBatchSize     = 10
	activityFlushInterval = time.Second
	activityWriteTimeout  = 5 * time.Second

	// DefaultActivityLimit is the page size when none is requested.
	DefaultActivityLimit = 100
	// MaxActivityLimit caps a single page.
	MaxActivityLimit = 500
)

// RequestMeta carries the client attributes stored alongside audit entries and sessions.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// ActivityRecorder stores audit entries without ever failing the caller.
type ActivityRecorder interface {
	Record(entry model.ActivityLog)
	ListRecent(ctx context.Context, filter repository.ActivityFilter, limit, offset int) ([]model.ActivityLog, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
	Close()
}

type activityRecorder struct {
	repo      repository.ActivityLogRepository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan model.ActivityLog
	done   chan struct{}
}

// NewActivityRecorder creates a recorder and starts its background writer.
// Entries are written in batches; when the queue is full new entries are dropped.
func NewActivityRecorder(repo repository.ActivityLogRepository, publisher events.Publisher, logger *zap.Logger, queueSize int) ActivityRecorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	r := &activityRecorder{
		repo:      repo,
		publisher: publisher,
		logger:    logger.Named("activity"),
		now:       time.Now,
		queue:     make(chan model.ActivityLog, queueSize),
		done:      make(chan struct{}),
	}

	go r.worker()

	return r
}

// Record enqueues entry for persistence and returns immediately.
func (r *activityRecorder) Record(entry model.ActivityLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- entry:
	default:
		metrics.ObserveActivity("dropped", 1)
		r.logger.Warn("activity queue full, entry dropped",
			zap.String("action", string(entry.Action)),
			zap.String("table", entry.TargetTable),
		)
	}
}

// worker drains the queue in batches.
func (r *activityRecorder) worker() {
	defer close(r.done)

	batch := make([]model.ActivityLog, 0, activityBatchSize)
	ticker := time.NewTicker(activityFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-r.queue:
			if !ok {
				// Channel closed, flush remaining entries
				r.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= activityBatchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *activityRecorder) flush(batch []model.ActivityLog) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), activityWriteTimeout)
	defer cancel()

	var written []model.ActivityLog
	if err := r.repo.CreateBatch(ctx, batch); err != nil {
		r.logger.Warn("activity batch write failed, retrying individually", zap.Error(err), zap.Int("size", len(batch)))
		for i := range batch {
			entry := batch[i]
			if err := r.repo.Create(ctx, &entry); err != nil {
				metrics.ObserveActivity("failed", 1)
				r.logger.Error("activity entry lost",
					zap.Error(err),
					zap.String("action", string(entry.Action)),
					zap.String("table", entry.TargetTable),
				)
				continue
			}
			written = append(written, entry)
		}
	} else {
		written = batch
	}

	metrics.ObserveActivity("persisted", len(written))
	for _, entry := range written {
		_ = r.publisher.PublishActivity(ctx, entry)
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (r *activityRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

// ListRecent returns entries newest first. limit defaults to 100 and is capped at 500.
func (r *activityRecorder) ListRecent(ctx context.Context, filter repository.ActivityFilter, limit, offset int) ([]model.ActivityLog, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := r.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

// Cleanup deletes entries older than retentionDays.
func (r *activityRecorder) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %d", retentionDays)
	}
	cutoff := r.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	removed, err := r.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup activity: %w", err)
	}
	metrics.ObserveCleanup("activity", removed)
	r.logger.Info("activity logs cleaned up", zap.Int64("removed", removed), zap.Int("retention_days", retentionDays))
	return removed, nil
}

// NewActivity builds an entry. details is marshalled to JSON; marshal
// failures leave Details empty.
func NewActivity(action model.ActivityAction, table, recordID string, userID *uuid.UUID, meta RequestMeta, details interface{}) model.ActivityLog {
	entry := model.ActivityLog{
		Action:      action,
		TargetTable: table,
		RecordID:    model.StringPtr(recordID),
		UserID:      userID,
		IPAddress:   meta.IP,
		UserAgent:   truncate(meta.UserAgent, 512),
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	return entry
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
