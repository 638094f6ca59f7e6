package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meditermin/booking-api/internal/model"
	"github.com/meditermin/booking-api/internal/store"
	"github.com/meditermin/booking-api/pkg/auth"
	apperrors "github.com/meditermin/booking-api/pkg/errors"
)

// LoginClient performs the credential exchange against the backend.
type LoginClient interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Service answers "is there a valid session?" for a booking session and
// performs the login that creates one. It never reads or writes the
// booking artifact: a failed or successful login leaves any pending
// booking untouched.
type Service struct {
	client   LoginClient
	sessions store.SessionStore
	logger   zerolog.Logger
}

func NewService(client LoginClient, sessions store.SessionStore, logger zerolog.Logger) *Service {
	return &Service{
		client:   client,
		sessions: sessions,
		logger:   logger.With().Str("component", "authgate").Logger(),
	}
}

// Current returns the session and bearer token bound to the booking
// session, or a typed unauthorized error when none exists.
func (s *Service) Current(ctx context.Context, sessionID string) (*model.AuthSession, string, error) {
	session, token, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", apperrors.Unauthorized("login required", err)
	}
	if err != nil {
		return nil, "", apperrors.Internal(fmt.Errorf("failed to load session: %w", err))
	}
	return session, token, nil
}

// Login exchanges credentials for a token, derives the identity from
// the token's claims and persists both. The token itself is stored
// separately from the identity record.
func (s *Service) Login(ctx context.Context, sessionID, email, password string) (*model.AuthSession, error) {
	token, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login rejected")
		return nil, err
	}

	identity, err := auth.ParseIdentity(token)
	if err != nil {
		return nil, apperrors.Unauthorized("login produced an unusable token", err)
	}

	session := &model.AuthSession{
		ID:        identity.UserID,
		Name:      identity.Name,
		Email:     identity.Email,
		Role:      identity.Role,
		CreatedAt: time.Now(),
	}
	if session.Email == "" {
		session.Email = email
	}

	if err := s.sessions.Save(ctx, sessionID, session, token); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to persist session: %w", err))
	}

	s.logger.Info().Str("user_id", session.ID).Str("role", session.Role).Msg("session created")
	return session, nil
}

// Logout destroys the session and its token.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to delete session: %w", err))
	}
	return nil
}
