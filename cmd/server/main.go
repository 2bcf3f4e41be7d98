package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "adeptify/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"adeptify/internal/auth"
	"adeptify/internal/cache"
	"adeptify/internal/config"
	"adeptify/internal/db"
	"adeptify/internal/events"
	"adeptify/internal/handler"
	"adeptify/internal/logger"
	"adeptify/internal/middleware"
	"adeptify/internal/model"
	"adeptify/internal/notify"
	"adeptify/internal/repository"
	"adeptify/internal/router"
	"adeptify/internal/service"
	"adeptify/internal/worker"
)

const version = "1.0.0"

// @title Adeptify Auth API
// @version 1.0
// @description Authentication, session and authorization service for Adeptify administrators.
// @host localhost:3001
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	appLogger, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Dir:         cfg.LogDir,
		Development: !cfg.IsProduction(),
		Service:     "adeptify-auth",
	})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		appLogger.Fatal("database init", zap.Error(err))
	}
	if err := migrate(gormDB, cfg.ResetDB, appLogger); err != nil {
		appLogger.Fatal("auto-migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	sessionRepo := repository.NewSessionRepository(gormDB)
	activityRepo := repository.NewActivityLogRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	limiter := auth.NewLoginLimiter(cacheClient, cfg.LoginMaxAttempts, cfg.LoginWindow)

	hub := notify.NewHub(appLogger)

	// Persisted activity goes to the broker, when configured, and to centre rooms.
	var broker events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		broker = events.NewAMQPPublisher(cfg.AMQPURL, appLogger)
	}
	publisher := events.Fanout{broker, hub.ActivityFeed()}

	recorder := service.NewActivityRecorder(activityRepo, publisher, appLogger, cfg.ActivityQueueSize)

	// Initialize services
	authService := service.NewAuthService(userRepo, sessionRepo, jwtService, hasher, limiter, recorder, hub, appLogger,
		service.AuthOptions{RotateRefreshTokens: cfg.RotateRefreshTokens})
	userService := service.NewUserService(userRepo, sessionRepo, cacheClient, hub)

	ping := func(ctx context.Context) error { return db.Ping(ctx, gormDB) }

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, appLogger,
		middleware.NewGuard(authService, recorder, appLogger, cfg.APIPrefix),
		recorder,
		router.Handlers{
			Auth:     handler.NewAuthHandler(authService),
			User:     handler.NewUserHandler(userService, recorder),
			Activity: handler.NewActivityHandler(recorder),
			Health:   handler.NewHealthHandler(ping, version, cfg.Env),
			WS:       handler.NewWSHandler(authService, hub, []string{cfg.FrontendURL}, appLogger),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go worker.NewCleanupWorker(recorder, sessionRepo, appLogger, cfg.CleanupInterval, cfg.ActivityRetentionDays).Start(ctx)
	go worker.NewHealthWorker(ping, appLogger, cfg.HealthCheckInterval).Start(ctx)

	appLogger.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	go func() {
		addr := ":" + cfg.ServerPort
		appLogger.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("server start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown", zap.Error(err))
	}
	recorder.Close()
	if err := publisher.Close(); err != nil {
		appLogger.Warn("publisher close", zap.Error(err))
	}
}

func migrate(gormDB *gorm.DB, reset bool, logger *zap.Logger) error {
	if reset {
		logger.Warn("RESET_DB=true detected, dropping all tables")
		for _, table := range []interface{}{&model.ActivityLog{}, &model.Session{}, &model.User{}} {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				logger.Warn("drop table failed (may not exist)", zap.Error(err))
			}
		}
	}
	return gormDB.AutoMigrate(&model.User{}, &model.Session{}, &model.ActivityLog{})
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/") + "/swagger/index.html"
}
