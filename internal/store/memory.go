package store

import (
	"context"
	"sync"
	"time"

	"github.com/meditermin/booking-api/internal/model"
)

// In-memory store implementations. Used by tests and by local
// development without a Redis instance.

type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string]*model.BookingDraft
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]*model.BookingDraft)}
}

func (s *MemoryDraftStore) Get(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *draft
	return &copied, nil
}

func (s *MemoryDraftStore) Put(ctx context.Context, draft *model.BookingDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft.UpdatedAt = time.Now()
	copied := *draft
	s.drafts[draft.SessionID] = &copied
	return nil
}

func (s *MemoryDraftStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
	return nil
}

type MemoryArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[string]*model.BookingArtifact
}

func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{artifacts: make(map[string]*model.BookingArtifact)}
}

func (s *MemoryArtifactStore) Save(ctx context.Context, sessionID string, artifact *model.BookingArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *artifact
	s.artifacts[sessionID] = &copied
	return nil
}

func (s *MemoryArtifactStore) Load(ctx context.Context, sessionID string) (*model.BookingArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artifact, ok := s.artifacts[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *artifact
	return &copied, nil
}

func (s *MemoryArtifactStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, sessionID)
	return nil
}

type memorySessionEntry struct {
	session model.AuthSession
	token   string
}

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySessionEntry
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]memorySessionEntry)}
}

func (s *MemorySessionStore) Save(ctx context.Context, sessionID string, session *model.AuthSession, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = memorySessionEntry{session: *session, token: token}
	return nil
}

func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) (*model.AuthSession, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, "", ErrNotFound
	}
	session := entry.session
	return &session, entry.token, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
