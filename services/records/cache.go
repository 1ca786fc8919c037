package records

import (
	"context"
	"errors"
	"time"

	"handyhub/utils"

	"github.com/go-redis/redis/v8"
)

// RedisRecordCache maps booking IDs to committed record IDs.
type RedisRecordCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRecordCache(client *redis.Client, ttl time.Duration) *RedisRecordCache {
	return &RedisRecordCache{Client: client, TTL: ttl}
}

func (c *RedisRecordCache) Get(ctx context.Context, bookingID string) (string, error) {
	id, err := c.Client.Get(ctx, utils.RecordCachePrefix+bookingID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

func (c *RedisRecordCache) Set(ctx context.Context, bookingID, recordID string) error {
	return c.Client.Set(ctx, utils.RecordCachePrefix+bookingID, recordID, c.TTL).Err()
}
