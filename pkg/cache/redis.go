package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func newRedisStore(location, prefix string, ttl time.Duration) (*redisStore, error) {
	if location == "" {
		return nil, fmt.Errorf("redis: LOCATION is required")
	}
	var opts *redis.Options
	if strings.HasPrefix(location, "redis://") || strings.HasPrefix(location, "rediss://") {
		parsed, err := redis.ParseURL(location)
		if err != nil {
			return nil, fmt.Errorf("redis: parse LOCATION: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: location}
	}
	return &redisStore{rdb: redis.NewClient(opts), prefix: prefix, ttl: ttl}, nil
}

func (s *redisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: redis get: %w", err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	return s.rdb.Set(ctx, s.prefix+key, data, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return s.rdb.Del(ctx, full...).Err()
}

func (s *redisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error { return s.rdb.Close() }
