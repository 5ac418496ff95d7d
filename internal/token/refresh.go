package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRefreshNotFound is returned when a refresh token is unknown, expired,
// or already rotated.
var ErrRefreshNotFound = errors.New("refresh token not found")

// RefreshStore keeps opaque refresh tokens in Redis, keyed by their sha256,
// with the session TTL. Rotation is a GETDEL so a replayed cookie loses the
// race and gets a 401.
type RefreshStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRefreshStore creates a RefreshStore from a Redis URL.
func NewRefreshStore(redisURL string, ttl time.Duration) (*RefreshStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RefreshStore{rdb: redis.NewClient(opts), ttl: ttl}, nil
}

func refreshKey(raw string) string {
	return "refresh:" + HashToken(raw)
}

// Create issues a new refresh token for the user.
func (s *RefreshStore) Create(ctx context.Context, userID uint) (string, error) {
	raw, err := NewRandomToken()
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, refreshKey(raw), strconv.FormatUint(uint64(userID), 10), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return raw, nil
}

// Rotate consumes the old token and issues a replacement for the same user.
func (s *RefreshStore) Rotate(ctx context.Context, raw string) (uint, string, error) {
	val, err := s.rdb.GetDel(ctx, refreshKey(raw)).Result()
	if err == redis.Nil {
		return 0, "", ErrRefreshNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, "", ErrRefreshNotFound
	}

	next, err := s.Create(ctx, uint(userID))
	if err != nil {
		return 0, "", err
	}
	return uint(userID), next, nil
}

// Delete revokes a refresh token. Unknown tokens are not an error.
func (s *RefreshStore) Delete(ctx context.Context, raw string) error {
	return s.rdb.Del(ctx, refreshKey(raw)).Err()
}

// Close closes the Redis client connection
func (s *RefreshStore) Close() error {
	return s.rdb.Close()
}
