package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"adeptify/internal/auth"
	apperrors "adeptify/internal/errors"
	"adeptify/internal/metrics"
	"adeptify/internal/model"
	"adeptify/internal/service"
)

// Guard holds the authentication and authorization middleware.
type Guard struct {
	authSvc   service.AuthService
	recorder  service.ActivityRecorder
	logger    *zap.Logger
	apiPrefix string
}

// NewGuard creates a guard.
func NewGuard(authSvc service.AuthService, recorder service.ActivityRecorder, logger *zap.Logger, apiPrefix string) *Guard {
	return &Guard{
		authSvc:   authSvc,
		recorder:  recorder,
		logger:    logger.Named("guard"),
		apiPrefix: apiPrefix,
	}
}

// Authenticate requires a bearer access token backed by a live session of an
// ACTIVE user, and attaches the caller's Identity to the context.
func (g *Guard) Authenticate() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  userKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return g.authSvc.Authenticate(c.Request().Context(), token)
		},
		SuccessHandler: func(c echo.Context) {
			if user, ok := c.Get(userKey).(*model.User); ok {
				SetIdentity(c, auth.IdentityFromUser(user))
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) {
				return parseErr.Err
			}
			return apperrors.ErrUnauthenticated
		},
	})
}

// RequireRole admits callers holding one of roles.
func (g *Guard) RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return apperrors.ErrUnauthenticated
			}
			if !auth.HasRole(id.Role, roles...) {
				g.deny(c, id, "role", string(id.Role))
				return apperrors.ErrForbidden
			}
			return next(c)
		}
	}
}

// RequireSuperAdmin admits SUPERADMIN only.
func (g *Guard) RequireSuperAdmin() echo.MiddlewareFunc {
	return g.RequireRole(auth.SuperAdminRoles...)
}

// RequireAdminCentre admits SUPERADMIN and ADMIN_CENTRE.
func (g *Guard) RequireAdminCentre() echo.MiddlewareFunc {
	return g.RequireRole(auth.AdminCentreRoles...)
}

// RequireAdminCurs admits every administrator tier.
func (g *Guard) RequireAdminCurs() echo.MiddlewareFunc {
	return g.RequireRole(auth.AdminCursRoles...)
}

// RequireCentreAccess checks the centre named by param against the caller's tenant.
func (g *Guard) RequireCentreAccess(param string) echo.MiddlewareFunc {
	return g.requireScope(auth.ScopeCentre, param)
}

// RequireCursAccess checks the course named by param against the caller's tenant.
func (g *Guard) RequireCursAccess(param string) echo.MiddlewareFunc {
	return g.requireScope(auth.ScopeCurs, param)
}

// RequireUserAccess admits the user named by param acting on themself, or a superadmin.
func (g *Guard) RequireUserAccess(param string) echo.MiddlewareFunc {
	return g.requireScope(auth.ScopeUser, param)
}

func (g *Guard) requireScope(scope auth.ScopeKind, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return apperrors.ErrUnauthenticated
			}
			requested := c.Param(param)
			if requested == "" {
				requested = bodyField(c, param)
			}
			if !auth.Allow(id, scope, requested) {
				g.deny(c, id, string(scope), requested)
				return apperrors.ErrForbidden
			}
			return next(c)
		}
	}
}

func (g *Guard) deny(c echo.Context, id auth.Identity, gate, requested string) {
	metrics.ObserveAccessDenied(gate)
	req := c.Request()
	table, _ := targetFromPath(req.URL.Path, g.apiPrefix)
	userID := id.ID
	g.recorder.Record(service.NewActivity(model.ActionAccessDenied, table, "", &userID, Meta(c),
		map[string]interface{}{
			"gate":      gate,
			"requested": requested,
			"role":      id.Role,
			"method":    req.Method,
			"path":      req.URL.Path,
		}).InCentre(id.CentreID))
	g.logger.Warn("access denied",
		zap.String("user_id", id.ID.String()),
		zap.String("gate", gate),
		zap.String("requested", requested),
		zap.String("path", req.URL.Path),
	)
}

// bodyField reads a top-level string field from a JSON body and restores the
// body so handlers can still bind it.
func bodyField(c echo.Context, field string) string {
	req := c.Request()
	if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}
	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	v, _ := payload[field].(string)
	return v
}
