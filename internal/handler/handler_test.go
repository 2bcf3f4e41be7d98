package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adeptify/internal/auth"
	"adeptify/internal/errors"
	"adeptify/internal/middleware"
	"adeptify/internal/model"
	"adeptify/internal/repository"
	"adeptify/internal/service"
)

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error { return tv.v.Struct(i) }

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	e.HTTPErrorHandler = errors.NewHTTPErrorHandler(zap.NewNop(), false)
	return e
}

// asIdentity injects an authenticated caller the way Guard.Authenticate does.
func asIdentity(user *model.User) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user", user)
			middleware.SetIdentity(c, auth.IdentityFromUser(user))
			return next(c)
		}
	}
}

func serve(e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) VerifyCredentials(ctx context.Context, email, password string) (*model.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string, meta service.RequestMeta) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string, meta service.RequestMeta) (*service.RefreshResult, error) {
	args := m.Called(ctx, refreshToken, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RefreshResult), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string, meta service.RequestMeta) error {
	return m.Called(ctx, refreshToken, meta).Error(0)
}

func (m *mockAuthService) Register(ctx context.Context, actor auth.Identity, in service.RegisterInput, meta service.RequestMeta) (*model.User, error) {
	args := m.Called(ctx, actor, in, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthService) AuthenticateSession(ctx context.Context, accessToken string) (*model.User, *model.Session, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.User), args.Get(1).(*model.Session), args.Error(2)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, actor auth.Identity, currentPassword, newPassword string, meta service.RequestMeta) error {
	return m.Called(ctx, actor, currentPassword, newPassword, meta).Error(0)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserService) ListByCentre(ctx context.Context, centreID string, limit, offset int) (*service.UserPage, error) {
	args := m.Called(ctx, centreID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserPage), args.Error(1)
}

func (m *mockUserService) ListByCurs(ctx context.Context, cursID string, limit, offset int) (*service.UserPage, error) {
	args := m.Called(ctx, cursID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserPage), args.Error(1)
}

func (m *mockUserService) UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status model.UserStatus) (*model.User, error) {
	args := m.Called(ctx, actor, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(entry model.ActivityLog) { m.Called(entry) }

func (m *mockRecorder) ListRecent(ctx context.Context, filter repository.ActivityFilter, limit, offset int) ([]model.ActivityLog, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLog), args.Error(1)
}

func (m *mockRecorder) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	args := m.Called(ctx, retentionDays)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRecorder) Close() { m.Called() }

func adminUser(role model.Role) *model.User {
	return &model.User{
		ID:        uuid.New(),
		Email:     "admin@example.com",
		FirstName: "Ada",
		LastName:  "Admin",
		Role:      role,
		Status:    model.UserStatusActive,
		CentreID:  model.StringPtr("c1"),
	}
}

func TestResponseEnvelope(t *testing.T) {
	e := newEcho()
	e.GET("/ok", func(c echo.Context) error {
		return respond(c, http.StatusOK, "done", map[string]int{"n": 1})
	})

	rec, body := serve(e, http.MethodGet, "/ok", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "done", body["message"])
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, body["data"])
}

func TestQueryInt(t *testing.T) {
	e := newEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x?limit=25&offset=abc", nil), httptest.NewRecorder())

	assert.Equal(t, 25, queryInt(c, "limit", 10))
	assert.Equal(t, 0, queryInt(c, "offset", 0))
	assert.Equal(t, 7, queryInt(c, "missing", 7))
}
