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

// ArtifactStore holds the durable booking artifact between slot
// selection and confirmation. At most one artifact exists per booking
// session; Save always replaces the previous value wholesale. Only the
// wizard (producer) and the finalizer (consumer) touch it.
type ArtifactStore interface {
	Save(ctx context.Context, sessionID string, artifact *model.BookingArtifact) error
	Load(ctx context.Context, sessionID string) (*model.BookingArtifact, error)
	Clear(ctx context.Context, sessionID string) error
}

type redisArtifactStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewArtifactStore(client *redis.Client, ttl time.Duration) ArtifactStore {
	return &redisArtifactStore{client: client, ttl: ttl}
}

func artifactKey(sessionID string) string {
	return "booking:artifact:" + sessionID
}

func (s *redisArtifactStore) Save(ctx context.Context, sessionID string, artifact *model.BookingArtifact) error {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := s.client.Set(ctx, artifactKey(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}
	return nil
}

func (s *redisArtifactStore) Load(ctx context.Context, sessionID string) (*model.BookingArtifact, error) {
	raw, err := s.client.Get(ctx, artifactKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}

	var artifact model.BookingArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	return &artifact, nil
}

func (s *redisArtifactStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, artifactKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear artifact: %w", err)
	}
	return nil
}
