package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meditermin/booking-api/internal/model"
)

// SessionStore persists the authenticated identity and its bearer token
// under separate keys. The token is the credential forwarded upstream;
// the session record is what the rest of the service reads.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, session *model.AuthSession, token string) error
	Load(ctx context.Context, sessionID string) (*model.AuthSession, string, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	return &redisSessionStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return "auth:session:" + sessionID
}

func tokenKey(sessionID string) string {
	return "auth:token:" + sessionID
}

func (s *redisSessionStore) Save(ctx context.Context, sessionID string, session *model.AuthSession, token string) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sessionID), raw, s.ttl)
	pipe.Set(ctx, tokenKey(sessionID), token, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Load(ctx context.Context, sessionID string) (*model.AuthSession, string, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load session: %w", err)
	}

	var session model.AuthSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal session: %w", err)
	}

	token, err := s.client.Get(ctx, tokenKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		// A session without its token cannot authorize anything.
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load token: %w", err)
	}

	return &session, token, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID), tokenKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
