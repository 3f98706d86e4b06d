package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const tokenKeyPrefix = "fcm:token:"

// RedisTokenStore keeps device tokens in Redis so every process sees token
// updates immediately.
type RedisTokenStore struct {
	Client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{Client: client}
}

func (s *RedisTokenStore) Token(ctx context.Context, userID string) (string, error) {
	token, err := s.Client.Get(ctx, tokenKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get device token: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) SetToken(ctx context.Context, userID, token string) error {
	if err := s.Client.Set(ctx, tokenKeyPrefix+userID, token, 0).Err(); err != nil {
		return fmt.Errorf("store device token: %w", err)
	}
	return nil
}
