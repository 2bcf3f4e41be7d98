package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"adeptify/internal/model"
	"adeptify/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, filter repository.UserFilter, limit, offset int) ([]model.User, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

// MockSessionRepository is a mock implementation of SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) FindActive(ctx context.Context, accessToken string, userID uuid.UUID) (*model.Session, error) {
	args := m.Called(ctx, accessToken, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockSessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string, userID uuid.UUID) (*model.Session, error) {
	args := m.Called(ctx, refreshToken, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockSessionRepository) Rotate(ctx context.Context, id uuid.UUID, accessToken, refreshToken string) error {
	args := m.Called(ctx, id, accessToken, refreshToken)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteByRefreshToken(ctx context.Context, refreshToken string) (int64, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockActivityLogRepository is a mock implementation of ActivityLogRepository.
type MockActivityLogRepository struct {
	mock.Mock
}

func (m *MockActivityLogRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityLogRepository) CreateBatch(ctx context.Context, entries []model.ActivityLog) error {
	// copy: the worker reuses its batch slice
	cp := append([]model.ActivityLog(nil), entries...)
	args := m.Called(ctx, cp)
	return args.Error(0)
}

func (m *MockActivityLogRepository) List(ctx context.Context, filter repository.ActivityFilter, limit, offset int) ([]model.ActivityLog, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}

func (m *MockActivityLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockLoginLimiter is a mock implementation of LoginLimiterInterface.
type MockLoginLimiter struct {
	mock.Mock
}

func (m *MockLoginLimiter) Allowed(ctx context.Context, email string) bool {
	args := m.Called(ctx, email)
	return args.Bool(0)
}

func (m *MockLoginLimiter) RecordFailure(ctx context.Context, email string) {
	m.Called(ctx, email)
}

func (m *MockLoginLimiter) Reset(ctx context.Context, email string) {
	m.Called(ctx, email)
}

// recorderStub captures entries instead of persisting them.
type recorderStub struct {
	mu      sync.Mutex
	entries []model.ActivityLog
}

func (r *recorderStub) Record(entry model.ActivityLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recorderStub) ListRecent(context.Context, repository.ActivityFilter, int, int) ([]model.ActivityLog, error) {
	return nil, nil
}

func (r *recorderStub) Cleanup(context.Context, int) (int64, error) { return 0, nil }

func (r *recorderStub) Close() {}

func (r *recorderStub) actions() []model.ActivityAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ActivityAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// notifierStub records revocation notices.
type notifierStub struct {
	revoked []uuid.UUID
	ended   []uuid.UUID
}

func (n *notifierStub) SessionEnded(_, sessionID uuid.UUID) {
	n.ended = append(n.ended, sessionID)
}

func (n *notifierStub) SessionsRevoked(userID uuid.UUID, _ string) {
	n.revoked = append(n.revoked, userID)
}
