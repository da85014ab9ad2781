package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in Redis under a profile prefix so several
// machines can share one session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(addr, password, profile string) (*RedisStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis store addr is required")
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: "libcat:" + safeProfile(profile) + ":",
	}, nil
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetPair writes both keys inside MULTI/EXEC.
func (s *RedisStore) SetPair(ctx context.Context, k1, v1, k2, v2 string) error {
	if err := checkKeys(k1, k2); err != nil {
		return err
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.prefix+k1, v1, 0)
		pipe.Set(ctx, s.prefix+k2, v2, 0)
		return nil
	})
	return err
}

// DeletePair removes both keys in a single DEL.
func (s *RedisStore) DeletePair(ctx context.Context, k1, k2 string) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	if err := s.client.Del(ctx, s.prefix+k1, s.prefix+k2).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, 3*time.Second)
}
