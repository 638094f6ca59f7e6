package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditermin/booking-api/internal/model"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestDraftStoreRoundTrip(t *testing.T) {
	client := newTestRedis(t)
	drafts := NewDraftStore(client, time.Hour)
	ctx := context.Background()

	draft := &model.BookingDraft{
		SessionID:     "s-1",
		Step:          model.StepDoctor,
		PatientStatus: model.PatientStatusReturning,
		Insurance:     model.InsurancePublic,
		DepartmentID:  3,
		DoctorID:      7,
		Departments:   []model.Department{{ID: 3, Title: "Orthopedics"}},
		Doctors:       []model.Doctor{{ID: 7, FirstName: "Ana", LastName: "Klein", DepartmentID: 3}},
		DoctorEpoch:   2,
		SlotEpoch:     1,
	}
	require.NoError(t, drafts.Put(ctx, draft))

	loaded, err := drafts.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, draft.Step, loaded.Step)
	assert.Equal(t, draft.Insurance, loaded.Insurance)
	assert.Equal(t, draft.Departments, loaded.Departments)
	assert.Equal(t, draft.Doctors, loaded.Doctors)
	assert.Equal(t, draft.DoctorEpoch, loaded.DoctorEpoch)
	assert.False(t, loaded.UpdatedAt.IsZero())

	require.NoError(t, drafts.Delete(ctx, "s-1"))
	_, err = drafts.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDraftStoreMissingSession(t *testing.T) {
	drafts := NewDraftStore(newTestRedis(t), time.Hour)

	_, err := drafts.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArtifactStoreReplacesWholesale(t *testing.T) {
	artifacts := NewArtifactStore(newTestRedis(t), time.Hour)
	ctx := context.Background()

	first := &model.BookingArtifact{
		DoctorName:   "Müller",
		Date:         "2025-03-04",
		SlotID:       100,
		Insurance:    model.InsurancePrivate,
		DoctorID:     "10",
		DepartmentID: "1",
	}
	require.NoError(t, artifacts.Save(ctx, "s-1", first))

	loaded, err := artifacts.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	second := &model.BookingArtifact{
		DoctorName:   "Eva Schmidt",
		Date:         "2025-03-05",
		SlotID:       110,
		Insurance:    model.InsurancePrivate,
		DoctorID:     "11",
		DepartmentID: "1",
	}
	require.NoError(t, artifacts.Save(ctx, "s-1", second))

	loaded, err = artifacts.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, second, loaded)

	require.NoError(t, artifacts.Clear(ctx, "s-1"))
	_, err = artifacts.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStoreKeepsTokenSeparate(t *testing.T) {
	client := newTestRedis(t)
	sessions := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	session := &model.AuthSession{ID: "42", Name: "Ana Klein", Email: "ana@example.com", Role: "USER"}
	require.NoError(t, sessions.Save(ctx, "s-1", session, "token-abc"))

	loaded, token, err := sessions.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "42", loaded.ID)
	assert.Equal(t, "token-abc", token)

	// A session whose token key is gone is unusable and reads as absent.
	require.NoError(t, client.Del(ctx, "auth:token:s-1").Err())
	_, _, err = sessions.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, sessions.Delete(ctx, "s-1"))
	_, _, err = sessions.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
