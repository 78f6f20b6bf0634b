// Package cache stores finished gas reports for a short time so repeated
// requests for the same address and window skip the explorer.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mohsinsiddi/w3gas/internal/gas"
)

// Cache is a report store with per-entry expiry.
type Cache = gas.ResultCache

// Disabled is the name reported when no cache is configured.
const Disabled = "disabled"

// Connect opens a Redis client for addr and verifies it answers PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	c := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     32,
		MinIdleConns: 4,
		DialTimeout:  3 * time.Second,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return c, nil
}

// NameOf returns c.Name(), or Disabled for a nil cache.
func NameOf(c Cache) string {
	if c == nil {
		return Disabled
	}
	return c.Name()
}
