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

// DraftStore carries the in-progress booking draft between requests.
// Only the wizard writes drafts.
type DraftStore interface {
	Get(ctx context.Context, sessionID string) (*model.BookingDraft, error)
	Put(ctx context.Context, draft *model.BookingDraft) error
	Delete(ctx context.Context, sessionID string) error
}

type redisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDraftStore(client *redis.Client, ttl time.Duration) DraftStore {
	return &redisDraftStore{client: client, ttl: ttl}
}

func draftKey(sessionID string) string {
	return "booking:draft:" + sessionID
}

func (s *redisDraftStore) Get(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	raw, err := s.client.Get(ctx, draftKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var draft model.BookingDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

func (s *redisDraftStore) Put(ctx context.Context, draft *model.BookingDraft) error {
	draft.UpdatedAt = time.Now()
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(draft.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (s *redisDraftStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
