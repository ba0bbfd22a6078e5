package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/pkg/logger"
)

// KeyPrefix namespaces user entries inside a shared Redis database.
const KeyPrefix = "users:v1:"

// UserCache stores single user records by ID.
type UserCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, id int64) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}

// RedisUserCache implements UserCache on top of any go-redis client.
type RedisUserCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client redis.Cmdable, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Key returns the Redis key holding the user with the given ID.
func Key(id int64) string {
	return KeyPrefix + strconv.FormatInt(id, 10)
}

func (c *RedisUserCache) Get(ctx context.Context, id int64) (*domain.User, error) {
	log := logger.WithContext(ctx, c.log)

	data, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		log.Debug("cache miss", zap.Int64("user_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get user %d: %w", id, err)
	}

	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		// A corrupt entry is dropped so the next read repopulates it
		_ = c.client.Del(ctx, Key(id)).Err()
		return nil, fmt.Errorf("decode cached user %d: %w", id, err)
	}

	log.Debug("cache hit", zap.Int64("user_id", id))
	return &u, nil
}

func (c *RedisUserCache) Set(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("cannot cache nil user")
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user %d: %w", u.ID, err)
	}

	if err := c.client.Set(ctx, Key(u.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set user %d: %w", u.ID, err)
	}

	logger.WithContext(ctx, c.log).Debug("cached user", zap.Int64("user_id", u.ID), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *RedisUserCache) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("cache delete user %d: %w", id, err)
	}
	return nil
}
