package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"grievance/internal/metrics"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	Namespace string `yaml:"namespace"`
}

// NewRedisClient creates a Redis client and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Redis is a Store[T] kept in Redis. Values are JSON encoded and expire
// through native key TTLs, so a read can never observe an expired entry.
type Redis[T any] struct {
	rdb       redis.UniversalClient
	namespace string
	batch     int64
	metrics   *metrics.Metrics
}

// NewRedis creates a Redis store. Keys are stored as namespace+key.
func NewRedis[T any](rdb redis.UniversalClient, namespace string, mt *metrics.Metrics) *Redis[T] {
	return &Redis[T]{rdb: rdb, namespace: namespace, batch: 256, metrics: mt}
}

func (r *Redis[T]) key(k string) string { return r.namespace + k }

// Get implements Store.
func (r *Redis[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.CacheMiss()
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		// Undecodable entries are dropped and treated as a miss.
		_ = r.rdb.Del(ctx, r.key(key)).Err()
		r.metrics.CacheMiss()
		return zero, false, nil
	}
	r.metrics.CacheHit()
	return v, true, nil
}

// Set implements Store.
func (r *Redis[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	if ttl <= 0 {
		return r.Delete(ctx, key)
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	if err := r.rdb.Set(ctx, r.key(key), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis[T]) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Clear implements Store by scanning namespace+prefix* and deleting matches
// in batches.
func (r *Redis[T]) Clear(ctx context.Context, prefix string) error {
	pattern := escapeGlob(r.key(prefix)) + "*"
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, pattern, r.batch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// escapeGlob escapes the characters Redis MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
