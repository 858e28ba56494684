package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/disco/terminald/internal/config"
	"github.com/disco/terminald/internal/logger"
	"github.com/disco/terminald/pkg/types"
)

// RedisStore implements Store against a Redis server
type RedisStore struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisStore creates a Redis-backed store. The connection is established
// lazily; a server that is down at construction time only surfaces as
// IsConnected returning false.
func NewRedisStore(cfg config.RedisConfig, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Global()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	return &RedisStore{
		client: client,
		logger: log.With("component", "redis_store"),
	}
}

// IsConnected pings the server
func (r *RedisStore) IsConnected(ctx context.Context) bool {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.logger.Debug("Redis ping failed", "error", err)
		return false
	}
	return true
}

// Get returns the value stored at key
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, types.WrapError(types.ErrCodeUnavailable, "redis get failed", err)
	}
	return val, true, nil
}

// Set stores value under key with the given TTL
func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return types.WrapError(types.ErrCodeUnavailable, "redis set failed", err)
	}
	return nil
}

// SAdd adds member to the set stored at key
func (r *RedisStore) SAdd(ctx context.Context, key, member string) error {
	if err := r.client.SAdd(ctx, key, member).Err(); err != nil {
		return types.WrapError(types.ErrCodeUnavailable, "redis sadd failed", err)
	}
	return nil
}

// SMembers returns all members of the set stored at key
func (r *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, types.WrapError(types.ErrCodeUnavailable, "redis smembers failed", err)
	}
	return members, nil
}

// Close closes the underlying client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
