package finalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meditermin/booking-api/internal/model"
	"github.com/meditermin/booking-api/internal/store"
	apperrors "github.com/meditermin/booking-api/pkg/errors"
	"github.com/meditermin/booking-api/pkg/metrics"
)

// ConfirmClient performs the atomic confirmation call.
type ConfirmClient interface {
	ConfirmAppointment(ctx context.Context, slotID int64, userID, token string) (*model.ConfirmedAppointment, error)
}

// Gate answers whether the booking session is authenticated.
type Gate interface {
	Current(ctx context.Context, sessionID string) (*model.AuthSession, string, error)
}

// Resetter puts the wizard back to its first step after a rejection.
type Resetter interface {
	Reset(ctx context.Context, sessionID string) (*model.BookingDraft, error)
}

// EventRecorder appends booking lifecycle events to the outbox.
type EventRecorder interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
}

// Service turns a persisted booking artifact plus an authenticated
// session into a confirmed appointment. The artifact is cleared exactly
// once, on confirmed success; every failure leaves it in place so the
// user can retry without re-selecting a slot.
type Service struct {
	client    ConfirmClient
	gate      Gate
	artifacts store.ArtifactStore
	wizard    Resetter
	events    EventRecorder
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewService(client ConfirmClient, gate Gate, artifacts store.ArtifactStore,
	wizard Resetter, events EventRecorder, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		client:    client,
		gate:      gate,
		artifacts: artifacts,
		wizard:    wizard,
		events:    events,
		metrics:   m,
		logger:    logger.With().Str("component", "finalizer").Logger(),
	}
}

// Pending returns the artifact awaiting confirmation.
func (s *Service) Pending(ctx context.Context, sessionID string) (*model.BookingArtifact, error) {
	return s.loadArtifact(ctx, sessionID)
}

// Confirm sends exactly one confirmation request for the persisted
// artifact. It never contacts the backend when the artifact or its slot
// id is missing.
func (s *Service) Confirm(ctx context.Context, sessionID string) (*model.ConfirmedAppointment, error) {
	artifact, err := s.loadArtifact(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if artifact.SlotID == 0 {
		// Not reachable through the wizard; abort locally.
		return nil, apperrors.BadRequest("booking artifact is missing its time slot", nil)
	}

	session, token, err := s.gate.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	appointment, err := s.client.ConfirmAppointment(ctx, artifact.SlotID, session.ID, token)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) && s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		s.logger.Warn().Err(err).Int64("slot_id", artifact.SlotID).Msg("confirmation failed, artifact retained")
		return nil, err
	}

	if err := s.artifacts.Clear(ctx, sessionID); err != nil {
		// The booking is confirmed upstream; a dangling artifact is
		// harmless because the backend treats a re-confirm as already
		// confirmed.
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to clear artifact after confirmation")
	}

	s.recordEvent(ctx, model.EventBookingConfirmed, model.BookingConfirmedEvent{
		AppointmentID: appointment.ID,
		SlotID:        artifact.SlotID,
		UserID:        session.ID,
		UserEmail:     session.Email,
		UserName:      session.Name,
		DoctorName:    artifact.DoctorName,
		Date:          artifact.Date,
	})

	if s.metrics != nil {
		s.metrics.BookingsConfirmed.Inc()
	}
	s.logger.Info().Int64("slot_id", artifact.SlotID).Str("user_id", session.ID).Msg("booking confirmed")
	return appointment, nil
}

// Reject clears the artifact and returns the wizard to step 1. The
// backend is never contacted.
func (s *Service) Reject(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	artifact, err := s.loadArtifact(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.artifacts.Clear(ctx, sessionID); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to clear artifact: %w", err))
	}

	s.recordEvent(ctx, model.EventBookingRejected, artifact)

	if s.metrics != nil {
		s.metrics.BookingsRejected.Inc()
	}

	return s.wizard.Reset(ctx, sessionID)
}

func (s *Service) loadArtifact(ctx context.Context, sessionID string) (*model.BookingArtifact, error) {
	artifact, err := s.artifacts.Load(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("booking artifact", err)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load artifact: %w", err))
	}
	return artifact, nil
}

func (s *Service) recordEvent(ctx context.Context, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}
	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   raw,
	}
	if err := s.events.Create(ctx, event); err != nil {
		// Event delivery is best-effort; the booking itself succeeded.
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to record outbox event")
	}
}
