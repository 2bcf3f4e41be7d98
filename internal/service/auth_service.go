package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"adeptify/internal/auth"
	apperrors "adeptify/internal/errors"
	"adeptify/internal/metrics"
	"adeptify/internal/model"
	"adeptify/internal/repository"
)

// SessionNotifier is told when sessions end server side so that realtime
// connections opened with them can be closed.
type SessionNotifier interface {
	SessionsRevoked(userID uuid.UUID, reason string)
	SessionEnded(userID, sessionID uuid.UUID)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RefreshResult is returned by a successful refresh. RefreshToken is set only
// when refresh tokens are rotated.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RegisterInput describes a new administrator account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
	CentreID  string
	CursID    string
}

// AuthOptions tunes the authentication flows.
type AuthOptions struct {
	// RotateRefreshTokens issues a new refresh token on every refresh and
	// invalidates the presented one.
	RotateRefreshTokens bool
}

// AuthService handles authentication operations.
type AuthService interface {
	VerifyCredentials(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*RefreshResult, error)
	Logout(ctx context.Context, refreshToken string, meta RequestMeta) error
	Register(ctx context.Context, actor auth.Identity, in RegisterInput, meta RequestMeta) (*model.User, error)
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
	AuthenticateSession(ctx context.Context, accessToken string) (*model.User, *model.Session, error)
	ChangePassword(ctx context.Context, actor auth.Identity, currentPassword, newPassword string, meta RequestMeta) error
}

type authService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   *auth.JWTService
	hasher   *auth.PasswordHasher
	limiter  auth.LoginLimiterInterface
	recorder ActivityRecorder
	notifier SessionNotifier
	logger   *zap.Logger
	opts     AuthOptions
	now      func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.JWTService,
	hasher *auth.PasswordHasher,
	limiter auth.LoginLimiterInterface,
	recorder ActivityRecorder,
	notifier SessionNotifier,
	logger *zap.Logger,
	opts AuthOptions,
) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		limiter:  limiter,
		recorder: recorder,
		notifier: notifier,
		logger:   logger.Named("auth"),
		opts:     opts,
		now:      time.Now,
	}
}

// VerifyCredentials checks an email/password pair. Unknown emails and wrong
// passwords produce the same error after the same amount of bcrypt work.
func (s *authService) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.CompareDummy(password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, apperrors.ErrAccountNotActive
	}

	return user, nil
}

// Login verifies credentials, opens a session and returns a token pair.
func (s *authService) Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error) {
	if !s.limiter.Allowed(ctx, email) {
		metrics.ObserveAuth("login", "throttled")
		return nil, apperrors.ErrTooManyAttempts
	}

	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			s.limiter.RecordFailure(ctx, email)
		}
		metrics.ObserveAuth("login", "failure")
		return nil, err
	}

	accessToken, _, err := s.tokens.GenerateAccessToken(auth.IdentityFromUser(user))
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, refreshExp, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	session := model.NewSession(user.ID, accessToken, refreshToken, refreshExp, meta.IP, meta.UserAgent)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("update last login", zap.Error(err), zap.String("user_id", user.ID.String()))
	} else {
		user.LastLogin = &now
	}
	s.limiter.Reset(ctx, email)

	s.recorder.Record(NewActivity(model.ActionLogin, "users", user.ID.String(), &user.ID, meta,
		map[string]interface{}{"email": user.Email}).InCentre(user.Centre()))
	metrics.ObserveAuth("login", "success")
	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("ip", meta.IP))

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The access token
// stored on the session is replaced, which invalidates the previous one.
func (s *authService) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh token is required", apperrors.ErrValidation)
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		metrics.ObserveAuth("refresh", "invalid_token")
		return nil, err
	}
	userID := claims.UserUUID()

	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.ObserveAuth("refresh", "session_expired")
			return nil, apperrors.ErrSessionExpired
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	// Expiry is exclusive: a session expiring exactly now is already gone.
	if !session.ExpiresAt.After(s.now()) {
		metrics.ObserveAuth("refresh", "session_expired")
		return nil, apperrors.ErrSessionExpired
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotActive
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return nil, apperrors.ErrAccountNotActive
	}

	// Claims come from the stored user so role or tenant changes apply immediately.
	accessToken, _, err := s.tokens.GenerateAccessToken(auth.IdentityFromUser(user))
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	var newRefresh string
	if s.opts.RotateRefreshTokens {
		newRefresh, _, err = s.tokens.GenerateRefreshToken(user.ID, user.Email)
		if err != nil {
			return nil, fmt.Errorf("generate refresh token: %w", err)
		}
	}

	if err := s.sessions.Rotate(ctx, session.ID, accessToken, newRefresh); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Revoked between lookup and update.
			return nil, apperrors.ErrSessionExpired
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	metrics.ObserveAuth("refresh", "success")
	return &RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes the session holding refreshToken. Unknown or malformed
// tokens are not an error.
func (s *authService) Logout(ctx context.Context, refreshToken string, meta RequestMeta) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	// Resolve the session first so sockets opened with it can be closed.
	var ended *model.Session
	claims, claimsErr := s.tokens.ParseRefreshToken(refreshToken)
	if claimsErr == nil {
		session, err := s.sessions.FindByRefreshToken(ctx, refreshToken, claims.UserUUID())
		if err == nil {
			ended = session
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("resolve session on logout", zap.Error(err))
		}
	}

	removed, err := s.sessions.DeleteByRefreshToken(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if claimsErr == nil && removed > 0 {
		userID := claims.UserUUID()
		s.recorder.Record(NewActivity(model.ActionLogout, "users", userID.String(), &userID, meta, nil))
		if ended != nil && s.notifier != nil {
			s.notifier.SessionEnded(userID, ended.ID)
		}
	}
	metrics.ObserveAuth("logout", "success")
	return nil
}

// Register creates an account on behalf of actor. Actors can never create
// accounts above what their role allows, nor outside their centre.
func (s *authService) Register(ctx context.Context, actor auth.Identity, in RegisterInput, meta RequestMeta) (*model.User, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}
	if !auth.CanAssignRole(actor.Role, in.Role) {
		return nil, apperrors.ErrForbidden
	}

	if actor.Role == model.RoleAdminCentre {
		switch in.CentreID {
		case "":
			in.CentreID = actor.CentreID
		case actor.CentreID:
		default:
			return nil, apperrors.ErrForbidden
		}
	}

	switch in.Role {
	case model.RoleAdminCentre:
		if in.CentreID == "" {
			return nil, fmt.Errorf("%w: centreId is required for %s", apperrors.ErrValidation, in.Role)
		}
	case model.RoleAdminCurs:
		if in.CentreID == "" || in.CursID == "" {
			return nil, fmt.Errorf("%w: centreId and cursId are required for %s", apperrors.ErrValidation, in.Role)
		}
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	creator := actor.ID
	user := &model.User{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		Status:       model.UserStatusActive,
		CentreID:     model.StringPtr(in.CentreID),
		CursID:       model.StringPtr(in.CursID),
		CreatedBy:    &creator,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.recorder.Record(NewActivity(model.ActionCreate, "users", user.ID.String(), &creator, meta,
		map[string]interface{}{
			"email":     user.Email,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"role":      user.Role,
		}).InCentre(in.CentreID))
	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("created_by", actor.Email),
	)

	return user, nil
}

// Authenticate resolves a bearer access token to its active user. The token
// must verify, the user must be ACTIVE and a live session must still hold it.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	user, _, err := s.AuthenticateSession(ctx, accessToken)
	return user, err
}

// AuthenticateSession is Authenticate that also returns the session backing the token.
func (s *authService) AuthenticateSession(ctx context.Context, accessToken string) (*model.User, *model.Session, error) {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserUUID())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrUnauthenticated
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return nil, nil, apperrors.ErrUnauthenticated
	}

	session, err := s.sessions.FindActive(ctx, accessToken, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrSessionExpired
		}
		return nil, nil, fmt.Errorf("find session: %w", err)
	}

	return user, session, nil
}

// ChangePassword replaces the caller's password and revokes all of their sessions.
func (s *authService) ChangePassword(ctx context.Context, actor auth.Identity, currentPassword, newPassword string, meta RequestMeta) error {
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUnauthenticated
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, currentPassword) {
		return apperrors.ErrWrongPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.sessions.DeleteAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.recorder.Record(NewActivity(model.ActionPasswordChange, "users", user.ID.String(), &user.ID, meta,
		map[string]interface{}{"sessionsRevoked": revoked}).InCentre(user.Centre()))
	if s.notifier != nil {
		s.notifier.SessionsRevoked(user.ID, "password_change")
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID.String()), zap.Int64("sessions_revoked", revoked))

	return nil
}
