package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

// CacheKeyPrefix namespaces every key this service writes so the Redis
// instance can be shared.
const CacheKeyPrefix = "guarderia:"

const scanBatch = 100

// CacheRepository stores JSON payloads in Redis. A nil client behaves as an
// always-missing cache.
type CacheRepository struct {
	client    redis.UniversalClient
	logger    *zap.Logger
	opTimeout time.Duration
}

// NewCacheRepository constructs a cache repository. opTimeout bounds each
// round trip; zero leaves the caller's deadline in charge.
func NewCacheRepository(client redis.UniversalClient, logger *zap.Logger, opTimeout time.Duration) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client != nil {
		if c, ok := client.(*redis.Client); ok && c == nil {
			client = nil
		}
	}
	return &CacheRepository{client: client, logger: logger, opTimeout: opTimeout}
}

func (r *CacheRepository) key(k string) string {
	return CacheKeyPrefix + k
}

func (r *CacheRepository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

// Get unmarshals the cached value into dest. Misses and timeouts both yield
// ErrCacheMiss; only decode and transport faults surface as errors.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		if errors.Is(err, context.DeadlineExceeded) {
			r.logger.Debug("cache read timed out", zap.String("key", key))
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// Set stores value as JSON with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()
	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes the exact keys.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.del(ctx, full)
}

func (r *CacheRepository) del(ctx context.Context, fullKeys []string) error {
	if len(fullKeys) == 0 {
		return nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()
	if err := r.client.Del(ctx, fullKeys...).Err(); err != nil {
		return fmt.Errorf("redis delete %d keys: %w", len(fullKeys), err)
	}
	return nil
}

// DeleteByPattern removes every key matching pattern, e.g. all cached
// statuses for one date after the daily closing.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}
	iter := r.client.Scan(ctx, 0, r.key(pattern), scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	removed := 0
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := r.del(ctx, batch); err != nil {
				return err
			}
			removed += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if err := r.del(ctx, batch); err != nil {
		return err
	}
	removed += len(batch)
	r.logger.Debug("cache keys invalidated", zap.String("pattern", pattern), zap.Int("removed", removed))
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
