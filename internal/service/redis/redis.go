package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type (
	RedisService struct {
		rdb *redis.Client
	}
)

func NewRedis(rdb *redis.Client) *RedisService {
	return &RedisService{
		rdb: rdb,
	}
}

// LPopCount removes and returns up to count elements from the head of key.
// An empty or missing list is an empty result.
func (r *RedisService) LPopCount(ctx context.Context, key string, count int) ([]string, error) {
	vals, err := r.rdb.LPopCount(ctx, key, count).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return vals, err
}

func (r *RedisService) LLen(ctx context.Context, key string) (int64, error) {
	return r.rdb.LLen(ctx, key).Result()
}

// LIndex returns the element at index, or ok=false when the list is empty.
func (r *RedisService) LIndex(ctx context.Context, key string, index int64) (string, bool, error) {
	v, err := r.rdb.LIndex(ctx, key, index).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisService) SAdd(ctx context.Context, key string, members ...any) error {
	return r.rdb.SAdd(ctx, key, members...).Err()
}

func (r *RedisService) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.rdb.SMembers(ctx, key).Result()
}

// Run executes a server-side script (EVALSHA with EVAL fallback).
func (r *RedisService) Run(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error) {
	return script.Run(ctx, r.rdb, keys, args...).Result()
}

// Ping reports round-trip latency to the Redis server.
func (r *RedisService) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
