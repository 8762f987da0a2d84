package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toyz/fastpress/pkg/fastpress/config"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
)

const pingTimeout = 5 * time.Second

// RedisCache implements Cache with go-redis.
type RedisCache struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Connect returns a Redis backed cache, or nil when no address is configured
// or the server does not answer a ping. Callers treat nil as "no cache".
func Connect(ctx context.Context, cfg config.RedisConfig, log logging.Logger) Cache {
	if !cfg.Enabled() {
		log.Info("Redis not configured, user cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Error("Failed to connect to Redis, continuing without Redis", "address", cfg.Address, "error", err.Error())
		_ = client.Close()
		return nil
	}

	log.Info("Connected to Redis", "address", cfg.Address)
	return NewRedis(client)
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
