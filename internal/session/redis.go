package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisStore) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	token := uuid.New().String()

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, sessionKey(token), userID, r.baseTTL+jitter).Err(); err != nil {
		return "", fmt.Errorf("redis set failed: %w", err)
	}
	return token, nil
}

func (r *RedisStore) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return userID, nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}
