package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bizlink/backend/internal/domain/bulk"
)

const sessionKeyPrefix = "upload:session:"

// RedisStore is a Redis-backed implementation of bulk.SessionStore.
// Sessions are stored as JSON with a native TTL, so expiry needs no
// application-side sweeping and Take is atomic via GETDEL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create stores a new session with the configured TTL
func (s *RedisStore) Create(ctx context.Context, session *bulk.UploadSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get returns a live session without consuming it
func (s *RedisStore) Get(ctx context.Context, id string) (*bulk.UploadSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, bulk.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeSession(data)
}

// Take atomically retrieves and removes a session using GETDEL
func (s *RedisStore) Take(ctx context.Context, id string) (*bulk.UploadSession, error) {
	data, err := s.client.GetDel(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, bulk.ErrSessionNotFound
		}
		return nil, fmt.Errorf("take session: %w", err)
	}
	return decodeSession(data)
}

// Delete removes a session if present
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SweepExpired is a no-op for Redis; keys expire via their TTL
func (s *RedisStore) SweepExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	return 0, nil
}

func decodeSession(data []byte) (*bulk.UploadSession, error) {
	var session bulk.UploadSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

var _ bulk.SessionStore = (*RedisStore)(nil)
