package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adeptify/internal/auth"
	"adeptify/internal/cache"
	apperrors "adeptify/internal/errors"
	"adeptify/internal/model"
	"adeptify/internal/repository"
)

const (
	userCacheTTL = 5 * time.Minute

	defaultUserPage = 50
	maxUserPage     = 200
)

// UserPage is one page of a user listing.
type UserPage struct {
	Users []model.User `json:"users"`
	Total int64        `json:"total"`
}

// UserService exposes the user operations behind the tenant-scoped routes.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListByCentre(ctx context.Context, centreID string, limit, offset int) (*UserPage, error)
	ListByCurs(ctx context.Context, cursID string, limit, offset int) (*UserPage, error)
	UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status model.UserStatus) (*model.User, error)
}

type userService struct {
	repo     repository.UserRepository
	sessions repository.SessionRepository
	cache    *cache.Client
	notifier SessionNotifier
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, sessions repository.SessionRepository, cache *cache.Client, notifier SessionNotifier) UserService {
	return &userService{repo: repo, sessions: sessions, cache: cache, notifier: notifier}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

// GetUser returns a user profile, served from cache when possible.
func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	s.cache.SetJSON(ctx, s.cacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) ListByCentre(ctx context.Context, centreID string, limit, offset int) (*UserPage, error) {
	return s.list(ctx, repository.UserFilter{CentreID: centreID}, limit, offset)
}

func (s *userService) ListByCurs(ctx context.Context, cursID string, limit, offset int) (*UserPage, error) {
	return s.list(ctx, repository.UserFilter{CursID: cursID}, limit, offset)
}

func (s *userService) list(ctx context.Context, filter repository.UserFilter, limit, offset int) (*UserPage, error) {
	if limit <= 0 {
		limit = defaultUserPage
	}
	if limit > maxUserPage {
		limit = maxUserPage
	}
	if offset < 0 {
		offset = 0
	}
	users, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &UserPage{Users: users, Total: total}, nil
}

// UpdateStatus changes the lifecycle status of a user. Moving a user out of
// ACTIVE revokes all of their sessions. Centre admins may only manage users of
// their own centre, and nobody may change their own status.
func (s *userService) UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status model.UserStatus) (*model.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, status)
	}
	if actor.ID == id {
		return nil, apperrors.ErrForbidden
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if actor.Role != model.RoleSuperAdmin {
		if user.Role == model.RoleSuperAdmin || !auth.Allow(actor, auth.ScopeCentre, user.Centre()) {
			return nil, apperrors.ErrForbidden
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	user.Status = status
	s.cache.Delete(ctx, s.cacheKey(id))

	if status != model.UserStatusActive {
		if _, err := s.sessions.DeleteAllForUser(ctx, id); err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
		if s.notifier != nil {
			s.notifier.SessionsRevoked(id, "status_"+string(status))
		}
	}

	return user, nil
}
