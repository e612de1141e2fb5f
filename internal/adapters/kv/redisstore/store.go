package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps visitor state in Redis so several host processes share carts.
// Keys expire after TTL of inactivity; zero means never.
type Store struct {
	rdb *redis.Client
	TTL time.Duration
}

func New(addr, password string, ttl time.Duration) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: 0}),
		TTL: ttl,
	}
}

func NewWithClient(rdb *redis.Client, ttl time.Duration) *Store { return &Store{rdb: rdb, TTL: ttl} }

func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, key, value, s.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
