package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adeptify/internal/model"
)

// SessionRepository persists issued token pairs. Raw tokens go in,
// digests are what gets stored and compared.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindActive(ctx context.Context, accessToken string, userID uuid.UUID) (*model.Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string, userID uuid.UUID) (*model.Session, error)
	Rotate(ctx context.Context, id uuid.UUID, accessToken, refreshToken string) error
	DeleteByRefreshToken(ctx context.Context, refreshToken string) (int64, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type sessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db, now: time.Now}
}

// Create stores a new session.
func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindActive returns the unexpired session holding accessToken for userID.
func (r *sessionRepository) FindActive(ctx context.Context, accessToken string, userID uuid.UUID) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("access_token_hash = ? AND user_id = ? AND expires_at > ?", model.HashToken(accessToken), userID, r.now()).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByRefreshToken returns the unexpired session holding refreshToken for userID.
func (r *sessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string, userID uuid.UUID) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("refresh_token_hash = ? AND user_id = ? AND expires_at > ?", model.HashToken(refreshToken), userID, r.now()).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Rotate replaces the access token of a session in a single statement.
// A non-empty refreshToken replaces the stored refresh token as well.
func (r *sessionRepository) Rotate(ctx context.Context, id uuid.UUID, accessToken, refreshToken string) error {
	updates := map[string]interface{}{
		"access_token_hash": model.HashToken(accessToken),
	}
	if refreshToken != "" {
		updates["refresh_token_hash"] = model.HashToken(refreshToken)
	}
	res := r.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByRefreshToken removes the session for refreshToken, if any.
func (r *sessionRepository) DeleteByRefreshToken(ctx context.Context, refreshToken string) (int64, error) {
	res := r.db.WithContext(ctx).Where("refresh_token_hash = ?", model.HashToken(refreshToken)).Delete(&model.Session{})
	return res.RowsAffected, res.Error
}

// DeleteAllForUser revokes every session of a user.
func (r *sessionRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{})
	return res.RowsAffected, res.Error
}

// DeleteExpired purges sessions whose expiry is at or before the cutoff.
func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", before).Delete(&model.Session{})
	return res.RowsAffected, res.Error
}
