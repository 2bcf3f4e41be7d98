package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adeptify/internal/model"
)

// ActivityFilter narrows activity queries. Empty fields are ignored.
type ActivityFilter struct {
	UserID *uuid.UUID
	Table  string
	Action model.ActivityAction
}

// ActivityLogRepository defines activity log persistence operations.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
	CreateBatch(ctx context.Context, entries []model.ActivityLog) error
	List(ctx context.Context, filter ActivityFilter, limit, offset int) ([]model.ActivityLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

// Create creates a new activity log entry.
func (r *activityLogRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// CreateBatch creates multiple activity log entries in a single transaction.
func (r *activityLogRepository) CreateBatch(ctx context.Context, entries []model.ActivityLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, 100).Error
}

// List returns entries newest first.
func (r *activityLogRepository) List(ctx context.Context, filter ActivityFilter, limit, offset int) ([]model.ActivityLog, error) {
	q := r.db.WithContext(ctx).Model(&model.ActivityLog{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Table != "" {
		q = q.Where("target_table = ?", filter.Table)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}

	var entries []model.ActivityLog
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteOlderThan removes entries created before cutoff.
func (r *activityLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.ActivityLog{})
	return res.RowsAffected, res.Error
}
