package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"quill/app/models"
)

const redisKeyPrefix = "quill:session:"

// RedisStore keeps sessions in redis with key expiry
type RedisStore struct {
	base
	client *redis.Client
}

// NewRedisStore creates a session store on client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{base: newBase(ttl), client: client}
}

// Create starts a session for userID that expires after the store TTL
func (s *RedisStore) Create(ctx context.Context, userID int) (*models.Session, error) {
	session, data, err := s.newSession(userID)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+session.Token, string(data), s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Get returns the live session for token, or ErrSessionNotFound
func (s *RedisStore) Get(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	data, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s.decode(data)
}

// Delete removes the session for token. Unknown tokens are not an error.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
