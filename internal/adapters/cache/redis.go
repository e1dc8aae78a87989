package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pubspy:"

// RedisBackend stores serialized cache values in Redis using SET EX.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: redisKeyPrefix}
}

// DialRedis connects to the Redis server at url and checks it with PING.
// Returns nil without error when url is empty (second tier disabled).
func DialRedis(ctx context.Context, url string) (*RedisBackend, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisBackend(client), nil
}

// Load returns the bytes stored under key; found is false on a Redis miss.
func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Store writes data under key with the given expiry.
func (b *RedisBackend) Store(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return b.client.Set(ctx, b.prefix+key, data, ttl).Err()
}

// Health checks the connection.
func (b *RedisBackend) Health(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
