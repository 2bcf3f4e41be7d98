// Package cache holds the Redis-backed state that the service can live without:
// cached user profiles and failed-login counters. Every call degrades to a miss
// when Redis is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyNamespace = "adeptify:"

// Client is a nil-safe Redis wrapper. A nil *Client behaves like an empty cache.
type Client struct {
	rdb *redis.Client
}

// New connects lazily; no command is sent until first use.
func New(addr, password string, db int) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})}
}

func (c *Client) off() bool {
	return c == nil || c.rdb == nil
}

func namespaced(key string) string {
	return keyNamespace + key
}

// GetJSON decodes the value at key into dst. It reports false on a miss,
// a decode failure or an unavailable Redis.
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	if c.off() {
		return false
	}
	raw, err := c.rdb.Get(ctx, namespaced(key)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// SetJSON stores value encoded as JSON for ttl. Write failures are dropped.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.off() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, namespaced(key), raw, ttl).Err()
}

// Count reads an integer counter, 0 when absent or unreadable.
func (c *Client) Count(ctx context.Context, key string) int64 {
	if c.off() {
		return 0
	}
	n, err := c.rdb.Get(ctx, namespaced(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0
	}
	return n
}

// Incr bumps a counter. The window starts at the first increment; later
// increments do not extend it.
func (c *Client) Incr(ctx context.Context, key string, window time.Duration) int64 {
	if c.off() {
		return 0
	}
	k := namespaced(key)
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0
	}
	return incr.Val()
}

// Delete drops key.
func (c *Client) Delete(ctx context.Context, key string) {
	if c.off() {
		return
	}
	_ = c.rdb.Del(ctx, namespaced(key)).Err()
}

func (c *Client) Close() error {
	if c.off() {
		return nil
	}
	return c.rdb.Close()
}
