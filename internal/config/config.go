package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env         string
	ServerPort  string
	APIPrefix   string
	SwaggerHost string
	FrontendURL string

	DBDriver    string
	DatabaseDSN string
	ResetDB     bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret           string
	JWTRefreshSecret    string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	RotateRefreshTokens bool
	BcryptCost          int

	LoginMaxAttempts int
	LoginWindow      time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ActivityRetentionDays int
	ActivityQueueSize     int
	CleanupInterval       time.Duration
	HealthCheckInterval   time.Duration

	LogLevel string
	LogDir   string

	AMQPURL string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")
	logLevel := "info"
	if env == "development" {
		logLevel = "debug"
	}

	return &Config{
		Env:         env,
		ServerPort:  getEnv("SERVER_PORT", "3001"),
		APIPrefix:   getEnv("API_PREFIX", "/api"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:2705"),

		DBDriver:    getEnv("DB_DRIVER", "mysql"),
		DatabaseDSN: getEnv("DATABASE_DSN", "user:password@tcp(localhost:3306)/adeptify?charset=utf8mb4&parseTime=True&loc=UTC"),
		ResetDB:     getEnvBool("RESET_DB", false),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:    os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:      getEnvDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:     getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RotateRefreshTokens: getEnvBool("ROTATE_REFRESH_TOKENS", false),
		BcryptCost:          getEnvInt("BCRYPT_COST", 12),

		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      getEnvDuration("LOGIN_LOCKOUT_WINDOW", 15*time.Minute),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		ActivityRetentionDays: getEnvInt("ACTIVITY_RETENTION_DAYS", 30),
		ActivityQueueSize:     getEnvInt("ACTIVITY_QUEUE_SIZE", 256),
		CleanupInterval:       getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour),
		HealthCheckInterval:   getEnvDuration("HEALTH_CHECK_INTERVAL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", logLevel),
		LogDir:   getEnv("LOG_DIR", "logs"),

		AMQPURL: os.Getenv("AMQP_URL"),
	}
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.DBDriver != "mysql" && c.DBDriver != "postgres" {
		return errors.New("DB_DRIVER must be mysql or postgres")
	}
	if c.CleanupInterval <= 0 || c.HealthCheckInterval <= 0 {
		return errors.New("CLEANUP_INTERVAL and HEALTH_CHECK_INTERVAL must be positive")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
