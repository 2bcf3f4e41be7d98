package auth

import (
	"context"
	"strings"
	"time"

	"adeptify/internal/cache"
)

const loginAttemptKeyPrefix = "login_attempts:"

// LoginLimiterInterface throttles repeated failed logins per email.
type LoginLimiterInterface interface {
	Allowed(ctx context.Context, email string) bool
	RecordFailure(ctx context.Context, email string)
	Reset(ctx context.Context, email string)
}

// LoginLimiter counts failed logins in Redis within a sliding lockout window.
// When Redis is unreachable every attempt is allowed.
type LoginLimiter struct {
	cache       *cache.Client
	maxAttempts int
	window      time.Duration
}

// Ensure LoginLimiter implements LoginLimiterInterface
var _ LoginLimiterInterface = (*LoginLimiter)(nil)

// NewLoginLimiter creates a limiter. maxAttempts <= 0 disables throttling.
func NewLoginLimiter(cache *cache.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{cache: cache, maxAttempts: maxAttempts, window: window}
}

// Allowed reports whether another attempt for email may proceed.
func (l *LoginLimiter) Allowed(ctx context.Context, email string) bool {
	if l.maxAttempts <= 0 {
		return true
	}
	return l.cache.Count(ctx, key(email)) < int64(l.maxAttempts)
}

// RecordFailure counts a failed attempt for email.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) {
	if l.maxAttempts <= 0 {
		return
	}
	l.cache.Incr(ctx, key(email), l.window)
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	l.cache.Delete(ctx, key(email))
}

func key(email string) string {
	return loginAttemptKeyPrefix + strings.ToLower(email)
}
