package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a refresh session is unknown, expired or already used.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores refresh-token sessions keyed by token id.
type SessionRepository interface {
	Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	Consume(ctx context.Context, tokenID string) (string, error)
	Ping(ctx context.Context) error
}

type sessionRepository struct {
	client *redis.Client
	prefix string
}

// NewSessionRepository returns a Redis-backed session store.
func NewSessionRepository(client *redis.Client, prefix string) SessionRepository {
	return &sessionRepository{client: client, prefix: prefix}
}

func (r *sessionRepository) Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+tokenID, userID, ttl).Err()
}

// Consume deletes the session and returns its owner, so each refresh token is usable once.
func (r *sessionRepository) Consume(ctx context.Context, tokenID string) (string, error) {
	userID, err := r.client.GetDel(ctx, r.prefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (r *sessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
