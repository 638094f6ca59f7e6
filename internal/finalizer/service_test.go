package finalizer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditermin/booking-api/internal/model"
	"github.com/meditermin/booking-api/internal/store"
	apperrors "github.com/meditermin/booking-api/pkg/errors"
)

type stubConfirmClient struct {
	calls       int
	err         error
	appointment *model.ConfirmedAppointment
	lastSlotID  int64
	lastUserID  string
	lastToken   string
}

func (s *stubConfirmClient) ConfirmAppointment(ctx context.Context, slotID int64, userID, token string) (*model.ConfirmedAppointment, error) {
	s.calls++
	s.lastSlotID = slotID
	s.lastUserID = userID
	s.lastToken = token
	if s.err != nil {
		return nil, s.err
	}
	return s.appointment, nil
}

type stubGate struct {
	session *model.AuthSession
	token   string
	err     error
}

func (s *stubGate) Current(ctx context.Context, sessionID string) (*model.AuthSession, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.session, s.token, nil
}

type stubResetter struct {
	calls int
}

func (s *stubResetter) Reset(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	s.calls++
	return &model.BookingDraft{SessionID: sessionID, Step: model.StepPatientCheck}, nil
}

type recordingEvents struct {
	events []*model.OutboxEvent
}

func (r *recordingEvents) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func testArtifact() *model.BookingArtifact {
	return &model.BookingArtifact{
		DoctorName:   "Müller",
		Date:         "2025-03-04",
		SlotID:       100,
		Insurance:    model.InsurancePrivate,
		DoctorID:     "10",
		DepartmentID: "1",
	}
}

func newTestFinalizer(t *testing.T) (*Service, *stubConfirmClient, *stubGate, store.ArtifactStore, *stubResetter, *recordingEvents) {
	t.Helper()
	client := &stubConfirmClient{appointment: &model.ConfirmedAppointment{ID: 555, TimeSlotID: 100, Status: "CONFIRMED"}}
	gate := &stubGate{session: &model.AuthSession{ID: "42", Name: "Ana Klein", Email: "ana@example.com"}, token: "tok-1"}
	artifacts := store.NewMemoryArtifactStore()
	resetter := &stubResetter{}
	events := &recordingEvents{}
	svc := NewService(client, gate, artifacts, resetter, events, nil, zerolog.Nop())
	return svc, client, gate, artifacts, resetter, events
}

func TestConfirmHappyPath(t *testing.T) {
	svc, client, _, artifacts, _, events := newTestFinalizer(t)
	ctx := context.Background()
	require.NoError(t, artifacts.Save(ctx, "s-1", testArtifact()))

	appointment, err := svc.Confirm(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(555), appointment.ID)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, int64(100), client.lastSlotID)
	assert.Equal(t, "42", client.lastUserID)
	assert.Equal(t, "tok-1", client.lastToken)

	// The artifact is consumed exactly once.
	_, err = artifacts.Load(ctx, "s-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventBookingConfirmed, events.events[0].EventType)
}

func TestConfirmWithoutArtifact(t *testing.T) {
	svc, client, _, _, _, _ := newTestFinalizer(t)

	_, err := svc.Confirm(context.Background(), "s-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	assert.Equal(t, 0, client.calls, "no artifact means no backend contact")
}

func TestConfirmWithoutSlotIDNeverCallsBackend(t *testing.T) {
	svc, client, _, artifacts, _, _ := newTestFinalizer(t)
	ctx := context.Background()

	broken := testArtifact()
	broken.SlotID = 0
	require.NoError(t, artifacts.Save(ctx, "s-1", broken))

	_, err := svc.Confirm(ctx, "s-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
	assert.Equal(t, 0, client.calls)
}

func TestConfirmRequiresLogin(t *testing.T) {
	svc, client, gate, artifacts, _, _ := newTestFinalizer(t)
	ctx := context.Background()
	require.NoError(t, artifacts.Save(ctx, "s-1", testArtifact()))

	gate.err = apperrors.Unauthorized("login required", nil)
	_, err := svc.Confirm(ctx, "s-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	assert.Equal(t, 0, client.calls)

	// The artifact survives the failed attempt.
	_, err = artifacts.Load(ctx, "s-1")
	require.NoError(t, err)
}

func TestConflictRetainsArtifact(t *testing.T) {
	svc, client, _, artifacts, _, events := newTestFinalizer(t)
	ctx := context.Background()
	require.NoError(t, artifacts.Save(ctx, "s-1", testArtifact()))

	client.err = apperrors.Conflict("slot already reserved", nil)
	_, err := svc.Confirm(ctx, "s-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	stored, err := artifacts.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, testArtifact(), stored)
	assert.Empty(t, events.events)

	// A retry after the backend recovers consumes the artifact.
	client.err = nil
	_, err = svc.Confirm(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	_, err = artifacts.Load(ctx, "s-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRejectClearsArtifactWithoutBackendContact(t *testing.T) {
	svc, client, _, artifacts, resetter, events := newTestFinalizer(t)
	ctx := context.Background()
	require.NoError(t, artifacts.Save(ctx, "s-1", testArtifact()))

	draft, err := svc.Reject(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, model.StepPatientCheck, draft.Step)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, 1, resetter.calls)

	_, err = artifacts.Load(ctx, "s-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventBookingRejected, events.events[0].EventType)
}

func TestPending(t *testing.T) {
	svc, _, _, artifacts, _, _ := newTestFinalizer(t)
	ctx := context.Background()

	_, err := svc.Pending(ctx, "s-1")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	require.NoError(t, artifacts.Save(ctx, "s-1", testArtifact()))
	pending, err := svc.Pending(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, testArtifact(), pending)
}
