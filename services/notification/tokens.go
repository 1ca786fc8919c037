package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"handyhub/utils"

	"github.com/go-redis/redis/v8"
)

// RedisTokenStore keeps the latest push token of each party in Redis.
type RedisTokenStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{Client: client, TTL: utils.PushTokenTTL}
}

func (s *RedisTokenStore) Save(ctx context.Context, partyID, token string) error {
	if err := s.Client.Set(ctx, utils.PushTokenPrefix+partyID, token, s.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store push token for %s: %w", partyID, err)
	}
	return nil
}

// Token returns the stored push token, or "" when the party never supplied one.
func (s *RedisTokenStore) Token(ctx context.Context, partyID string) (string, error) {
	token, err := s.Client.Get(ctx, utils.PushTokenPrefix+partyID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read push token for %s: %w", partyID, err)
	}
	return token, nil
}
