package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Mohsinsiddi/w3gas/internal/gas"
)

// Redis keeps msgpack-encoded reports in Redis with SET ... EX.
type Redis struct {
	db redis.Cmdable
}

// NewRedis wraps a connected client.
func NewRedis(db redis.Cmdable) *Redis {
	return &Redis{db: db}
}

func (r *Redis) Name() string { return "redis" }

// Get returns the report under key. A missing key is (nil, false, nil).
func (r *Redis) Get(ctx context.Context, key string) (*gas.Report, bool, error) {
	data, err := r.db.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var report gas.Report
	if err := msgpack.Unmarshal(data, &report); err != nil {
		return nil, false, fmt.Errorf("decoding cached report %s: %w", key, err)
	}
	return &report, true, nil
}

// Set stores report under key for ttl.
func (r *Redis) Set(ctx context.Context, key string, report *gas.Report, ttl time.Duration) error {
	b, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := r.db.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
