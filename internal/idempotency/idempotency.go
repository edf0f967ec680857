// Package idempotency remembers which session a retried booking request
// already created.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Pending marks a key whose request is still running.
const Pending = "pending"

type Keeper interface {
	// Reserve claims key. It returns false and the stored value when the
	// key was already claimed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	// Complete records the result for a reserved key.
	Complete(ctx context.Context, key, value string, ttl time.Duration) error
	// Release forgets a key so the request can be retried.
	Release(ctx context.Context, key string) error
}

func redisKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

type RedisKeeper struct {
	client *redis.Client
}

func NewRedisClient(redisAddr string) (*redis.Client, error) {
	const op = "idempotency.NewRedisClient"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return client, nil
}

func NewRedisKeeper(client *redis.Client) *RedisKeeper {
	return &RedisKeeper{client: client}
}

func (r *RedisKeeper) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	const op = "idempotency.RedisKeeper.Reserve"

	ok, err := r.client.SetNX(ctx, redisKey(key), Pending, ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		return true, "", nil
	}

	val, err := r.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls.
		return r.Reserve(ctx, key, ttl)
	}
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}

	return false, val, nil
}

func (r *RedisKeeper) Complete(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "idempotency.RedisKeeper.Complete"

	if err := r.client.Set(ctx, redisKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisKeeper) Release(ctx context.Context, key string) error {
	const op = "idempotency.RedisKeeper.Release"

	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CacheKeeper keeps keys in process memory. Used when Redis is not configured.
type CacheKeeper struct {
	c *cache.Cache
}

func NewCacheKeeper(defaultTTL time.Duration) *CacheKeeper {
	return &CacheKeeper{c: cache.New(defaultTTL, 2*defaultTTL)}
}

func (k *CacheKeeper) Reserve(_ context.Context, key string, ttl time.Duration) (bool, string, error) {
	if err := k.c.Add(key, Pending, ttl); err == nil {
		return true, "", nil
	}

	val, found := k.c.Get(key)
	if !found {
		return k.Reserve(context.Background(), key, ttl)
	}
	return false, val.(string), nil
}

func (k *CacheKeeper) Complete(_ context.Context, key, value string, ttl time.Duration) error {
	k.c.Set(key, value, ttl)
	return nil
}

func (k *CacheKeeper) Release(_ context.Context, key string) error {
	k.c.Delete(key)
	return nil
}
