package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
)

// Store is the process-external KV the insight engine leans on: short-TTL
// rotation records, per-user generation locks and staleness flags. None of
// it needs durability, so losing the store only resets cooldowns.
type Store interface {
	// AcquireLock returns true when this caller now holds the lock.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	// PushRotation prepends raw to the list at key, trims it to max items
	// and refreshes the list TTL.
	PushRotation(ctx context.Context, key, raw string, max int, ttl time.Duration) error
	ListRotation(ctx context.Context, key string) ([]string, error)

	SetFlag(ctx context.Context, key string, ttl time.Duration) error
	HasFlag(ctx context.Context, key string) (bool, error)
	ClearFlag(ctx context.Context, key string) error

	Close() error
}

// NewStore connects to REDIS_ADDR, or falls back to the in-process store
// when unset (local runs and tests). The fallback keeps lock and TTL
// semantics but is invisible to other processes.
func NewStore(log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.Str("REDIS_ADDR", "")
	if addr == "" {
		log.Warn("REDIS_ADDR not set; using in-process kv store")
		return NewMemoryStore(), nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.Str("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisStore{log: log.With("service", "RedisStore"), rdb: rdb}, nil
}

type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func (s *redisStore) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, "1", ttl).Result()
}

func (s *redisStore) ReleaseLock(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *redisStore) PushRotation(ctx context.Context, key, raw string, max int, ttl time.Duration) error {
	if max <= 0 {
		max = 1
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, int64(max-1))
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisStore) ListRotation(ctx context.Context, key string) ([]string, error) {
	vals, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return vals, nil
}

func (s *redisStore) SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, "1", ttl).Err()
}

func (s *redisStore) HasFlag(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisStore) ClearFlag(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
