package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the Store port with Redis hashes and sorted sets.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) GetMap(ctx context.Context, key string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, key).Result()
}

func (s *RedisStore) SetMap(ctx context.Context, key string, fields map[string]string) error {
	return s.rdb.HSet(ctx, key, fields).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return s.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (s *RedisStore) ZRem(ctx context.Context, key string, member string) error {
	return s.rdb.ZRem(ctx, key, member).Err()
}

func (s *RedisStore) ZRange(ctx context.Context, key string) ([]string, error) {
	return s.rdb.ZRange(ctx, key, 0, -1).Result()
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.rdb.Keys(ctx, prefix+"*").Result()
}
