package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisKV struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisKV stores values with the given expiry; zero keeps them forever.
func NewRedisKV(rdb redis.UniversalClient, ttl time.Duration) *RedisKV {
	return &RedisKV{rdb: rdb, ttl: ttl}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoValue
	}
	return b, err
}

func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, key, value, r.ttl).Err()
}
