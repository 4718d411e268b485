// internal/service/inventory/infrastructure/redis_cache.go
package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"marketplace/internal/service/inventory/domain/port"
)

const availabilityTTL = 30 * time.Second

// RedisAvailabilityCache 用 Redis 缓存 SKU 可用量。
// 账本每次变更都会失效对应的 Key，缓存只可能短暂偏旧，不会偏新。
type RedisAvailabilityCache struct {
	client *redis.Client
}

func NewRedisAvailabilityCache(client *redis.Client) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client}
}

var _ port.AvailabilityCache = (*RedisAvailabilityCache)(nil)

func availabilityKey(sku string) string {
	return fmt.Sprintf("inventory:available:{%s}", sku)
}

func (c *RedisAvailabilityCache) Get(ctx context.Context, sku string) (int, bool, error) {
	val, err := c.client.Get(ctx, availabilityKey(sku)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "availability cache get failed")
	}
	available, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, errors.Wrap(err, "unexpected availability cache value")
	}
	return available, true, nil
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, sku string, available int) error {
	err := c.client.Set(ctx, availabilityKey(sku), available, availabilityTTL).Err()
	return errors.Wrap(err, "availability cache set failed")
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, skus ...string) error {
	keys := make([]string, 0, len(skus))
	for _, sku := range skus {
		keys = append(keys, availabilityKey(sku))
	}
	err := c.client.Del(ctx, keys...).Err()
	return errors.Wrap(err, "availability cache invalidate failed")
}
