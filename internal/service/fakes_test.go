package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adeptify/internal/model"
	"adeptify/internal/repository"
)

// memUserRepo is an in-memory UserRepository for flow tests.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{users: map[uuid.UUID]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) Upsert(ctx context.Context, user *model.User) error {
	return r.Create(ctx, user)
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return r.update(id, func(u *model.User) { u.PasswordHash = hash })
}

func (r *memUserRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.UserStatus) error {
	return r.update(id, func(u *model.User) { u.Status = status })
}

func (r *memUserRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.update(id, func(u *model.User) { u.LastLogin = &at })
}

func (r *memUserRepo) List(context.Context, repository.UserFilter, int, int) ([]model.User, int64, error) {
	return nil, 0, nil
}

func (r *memUserRepo) update(id uuid.UUID, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fn(u)
	return nil
}

// memSessionRepo is an in-memory SessionRepository honouring expiry.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.Session
	now      func() time.Time
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[uuid.UUID]*model.Session{}, now: time.Now}
}

func (r *memSessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) find(match func(*model.Session) bool) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if match(s) && s.ExpiresAt.After(r.now()) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSessionRepo) FindActive(_ context.Context, accessToken string, userID uuid.UUID) (*model.Session, error) {
	h := model.HashToken(accessToken)
	return r.find(func(s *model.Session) bool { return s.AccessTokenHash == h && s.UserID == userID })
}

func (r *memSessionRepo) FindByRefreshToken(_ context.Context, refreshToken string, userID uuid.UUID) (*model.Session, error) {
	h := model.HashToken(refreshToken)
	return r.find(func(s *model.Session) bool { return s.RefreshTokenHash == h && s.UserID == userID })
}

func (r *memSessionRepo) Rotate(_ context.Context, id uuid.UUID, accessToken, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.AccessTokenHash = model.HashToken(accessToken)
	if refreshToken != "" {
		s.RefreshTokenHash = model.HashToken(refreshToken)
	}
	return nil
}

func (r *memSessionRepo) deleteWhere(match func(*model.Session) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if match(s) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

func (r *memSessionRepo) DeleteByRefreshToken(_ context.Context, refreshToken string) (int64, error) {
	h := model.HashToken(refreshToken)
	return r.deleteWhere(func(s *model.Session) bool { return s.RefreshTokenHash == h }), nil
}

func (r *memSessionRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	return r.deleteWhere(func(s *model.Session) bool { return s.UserID == userID }), nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	return r.deleteWhere(func(s *model.Session) bool { return !s.ExpiresAt.After(before) }), nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
