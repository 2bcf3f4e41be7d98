package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"adeptify/internal/auth"
	"adeptify/internal/errors"
	"adeptify/internal/model"
	"adeptify/internal/service"
)

func TestAuthHandler_Login(t *testing.T) {
	user := adminUser(model.RoleSuperAdmin)

	tests := []struct {
		name       string
		body       string
		setup      func(m *mockAuthService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			body: `{"email":"admin@example.com","password":"secret123"}`,
			setup: func(m *mockAuthService) {
				m.On("Login", mock.Anything, "admin@example.com", "secret123", mock.Anything).
					Return(&service.LoginResult{User: user, AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid email",
			body:       `{"email":"nope","password":"secret123"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "short password",
			body:       `{"email":"admin@example.com","password":"123"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "malformed body",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "bad credentials",
			body: `{"email":"admin@example.com","password":"wrongpass"}`,
			setup: func(m *mockAuthService) {
				m.On("Login", mock.Anything, "admin@example.com", "wrongpass", mock.Anything).
					Return(nil, errors.ErrInvalidCredentials)
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name: "throttled",
			body: `{"email":"admin@example.com","password":"wrongpass"}`,
			setup: func(m *mockAuthService) {
				m.On("Login", mock.Anything, "admin@example.com", "wrongpass", mock.Anything).
					Return(nil, errors.ErrTooManyAttempts)
			},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "TOO_MANY_ATTEMPTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAuthService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			e := newEcho()
			e.POST("/auth/login", NewAuthHandler(svc).Login)

			rec, body := serve(e, http.MethodPost, "/auth/login", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.wantCode, body["code"])
				return
			}
			data := body["data"].(map[string]interface{})
			assert.Equal(t, "a", data["accessToken"])
			assert.Equal(t, "r", data["refreshToken"])
			assert.Equal(t, float64(3600), data["expiresIn"])
			assert.NotContains(t, rec.Body.String(), "password")
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(m *mockAuthService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success without rotation",
			body: `{"refreshToken":"r1"}`,
			setup: func(m *mockAuthService) {
				m.On("Refresh", mock.Anything, "r1", mock.Anything).
					Return(&service.RefreshResult{AccessToken: "a2", ExpiresIn: 3600}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{name: "missing token", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{
			name: "expired session",
			body: `{"refreshToken":"r1"}`,
			setup: func(m *mockAuthService) {
				m.On("Refresh", mock.Anything, "r1", mock.Anything).Return(nil, errors.ErrSessionExpired)
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "SESSION_EXPIRED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAuthService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			e := newEcho()
			e.POST("/auth/refresh", NewAuthHandler(svc).Refresh)

			rec, body := serve(e, http.MethodPost, "/auth/refresh", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
				return
			}
			data := body["data"].(map[string]interface{})
			assert.Equal(t, "a2", data["accessToken"])
			_, hasRefresh := data["refreshToken"]
			assert.False(t, hasRefresh)
		})
	}
}

func TestAuthHandler_LogoutAlwaysSucceeds(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		token string
	}{
		{name: "known token", body: `{"refreshToken":"r1"}`, token: "r1"},
		{name: "no token", body: `{}`, token: ""},
		{name: "malformed body", body: `{"refreshToken":`, token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAuthService)
			svc.On("Logout", mock.Anything, tt.token, mock.Anything).Return(nil)
			e := newEcho()
			e.POST("/auth/logout", NewAuthHandler(svc).Logout)

			rec, body := serve(e, http.MethodPost, "/auth/logout", tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, body["success"])
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Register(t *testing.T) {
	actor := adminUser(model.RoleAdminCentre)
	created := adminUser(model.RoleAdminCurs)

	tests := []struct {
		name       string
		body       string
		setup      func(m *mockAuthService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "created",
			body: `{"email":"new@example.com","password":"longenough","firstName":"N","lastName":"U","role":"ADMIN_CURS","centreId":"c1","cursId":"k1"}`,
			setup: func(m *mockAuthService) {
				m.On("Register", mock.Anything, auth.IdentityFromUser(actor), service.RegisterInput{
					Email: "new@example.com", Password: "longenough", FirstName: "N", LastName: "U",
					Role: model.RoleAdminCurs, CentreID: "c1", CursID: "k1",
				}, mock.Anything).Return(created, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown role",
			body:       `{"email":"new@example.com","password":"longenough","firstName":"N","lastName":"U","role":"PROFESSOR"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "escalation",
			body: `{"email":"new@example.com","password":"longenough","firstName":"N","lastName":"U","role":"SUPERADMIN"}`,
			setup: func(m *mockAuthService) {
				m.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.ErrForbidden)
			},
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name: "duplicate",
			body: `{"email":"dup@example.com","password":"longenough","firstName":"N","lastName":"U","role":"ADMIN_CURS","centreId":"c1","cursId":"k1"}`,
			setup: func(m *mockAuthService) {
				m.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.ErrConflict)
			},
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAuthService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			e := newEcho()
			e.POST("/auth/register", NewAuthHandler(svc).Register, asIdentity(actor))

			rec, body := serve(e, http.MethodPost, "/auth/register", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
				return
			}
			user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
			assert.Equal(t, created.ID.String(), user["id"])
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_RegisterRequiresIdentity(t *testing.T) {
	e := newEcho()
	e.POST("/auth/register", NewAuthHandler(new(mockAuthService)).Register)

	rec, body := serve(e, http.MethodPost, "/auth/register", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", body["code"])
}

func TestAuthHandler_Verify(t *testing.T) {
	user := adminUser(model.RoleAdminCentre)
	e := newEcho()
	e.GET("/auth/verify", NewAuthHandler(new(mockAuthService)).Verify, asIdentity(user))

	rec, body := serve(e, http.MethodGet, "/auth/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, user.Email, got["email"])
	assert.NotContains(t, got, "passwordHash")
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	user := adminUser(model.RoleAdminCurs)

	tests := []struct {
		name       string
		body       string
		svcErr     error
		callSvc    bool
		wantStatus int
		wantCode   string
	}{
		{name: "changed", body: `{"currentPassword":"oldpass12","newPassword":"newpass12"}`, callSvc: true, wantStatus: http.StatusOK},
		{name: "too short", body: `{"currentPassword":"oldpass12","newPassword":"short"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "wrong current", body: `{"currentPassword":"nope1234","newPassword":"newpass12"}`, callSvc: true, svcErr: errors.ErrWrongPassword, wantStatus: http.StatusBadRequest, wantCode: "WRONG_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAuthService)
			if tt.callSvc {
				svc.On("ChangePassword", mock.Anything, auth.IdentityFromUser(user), mock.Anything, mock.Anything, mock.Anything).Return(tt.svcErr)
			}
			e := newEcho()
			e.POST("/auth/change-password", NewAuthHandler(svc).ChangePassword, asIdentity(user))

			rec, body := serve(e, http.MethodPost, "/auth/change-password", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
			}
			svc.AssertExpectations(t)
		})
	}
}
