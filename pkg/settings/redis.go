package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the keys written by RedisKV.
const DefaultRedisPrefix = "speeza:settings:"

// RedisOptions describes a Redis connection.
type RedisOptions struct {
	Addr        string        // ex: "localhost:6379"
	Password    string        // optional
	DB          int           // database number
	Prefix      string        // key prefix, DefaultRedisPrefix when empty
	PingTimeout time.Duration // timeout of the connectivity check
}

// RedisKV stores entries as plain Redis string keys.
type RedisKV struct {
	client redis.Cmdable
	prefix string
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client redis.Cmdable, prefix string) *RedisKV {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisKV{client: client, prefix: prefix}
}

// DialRedis connects and pings once. The returned close function releases
// the client.
func DialRedis(ctx context.Context, opts RedisOptions) (*RedisKV, func() error, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis unavailable at %s: %w", opts.Addr, err)
	}
	return NewRedisKV(client, opts.Prefix), client.Close, nil
}

// Key returns the Redis key used for a settings key.
func (r *RedisKV) Key(key string) string {
	return r.prefix + key
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.Key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
