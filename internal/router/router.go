package router

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"adeptify/internal/config"
	apperrors "adeptify/internal/errors"
	"adeptify/internal/handler"
	appmw "adeptify/internal/middleware"
	"adeptify/internal/service"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Activity *handler.ActivityHandler
	Health   *handler.HealthHandler
	WS       *handler.WSHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *zap.Logger,
	guard *appmw.Guard,
	recorder service.ActivityRecorder,
	h Handlers,
) {
	prefix := strings.TrimRight(cfg.APIPrefix, "/")

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = apperrors.NewHTTPErrorHandler(logger, cfg.IsProduction(),
		appmw.SystemErrorRecorder(recorder, prefix))

	e.Use(middleware.RequestID())
	e.Use(appmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/ws" || p == "/metrics"
		},
	}))
	e.Use(middleware.BodyLimit("10M"))
	e.Use(appmw.Metrics())

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ws", h.WS.Connect)

	e.GET(prefix+"/health", h.Health.Health)

	api := e.Group(prefix,
		middleware.RateLimiterWithConfig(rateLimiterConfig(cfg)),
		appmw.ActivityLogger(recorder, prefix),
	)

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.GET("/verify", h.Auth.Verify, guard.Authenticate())
	authGroup.POST("/change-password", h.Auth.ChangePassword, guard.Authenticate())
	authGroup.POST("/register", h.Auth.Register, guard.Authenticate(), guard.RequireAdminCentre())

	// User routes
	users := api.Group("/users", guard.Authenticate())
	users.GET("/:userId", h.User.GetUser, guard.RequireUserAccess("userId"))
	users.GET("/:userId/activity", h.User.GetUserActivity, guard.RequireUserAccess("userId"))
	users.PATCH("/:userId/status", h.User.UpdateStatus, guard.RequireAdminCentre())

	// Tenant routes
	api.GET("/centres/:centreId/users", h.User.ListCentreUsers,
		guard.Authenticate(), guard.RequireAdminCurs(), guard.RequireCentreAccess("centreId"))
	api.GET("/cursos/:cursId/users", h.User.ListCursUsers,
		guard.Authenticate(), guard.RequireAdminCurs(), guard.RequireCursAccess("cursId"))

	// Audit routes
	logs := api.Group("/logs", guard.Authenticate(), guard.RequireSuperAdmin())
	logs.GET("", h.Activity.ListLogs)
	logs.POST("/cleanup", h.Activity.Cleanup)
}

func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	perSecond := rate.Limit(float64(cfg.RateLimitRequests) / cfg.RateLimitWindow.Seconds())
	return middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      perSecond,
			Burst:     cfg.RateLimitRequests,
			ExpiresIn: cfg.RateLimitWindow,
		}),
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, apperrors.ErrorResponse{
				Message: "Too many requests, please try again later",
				Code:    "RATE_LIMITED",
			})
		},
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
