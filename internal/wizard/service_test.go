package wizard

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

type stubRefClient struct {
	departments     []model.Department
	doctorsByDept   map[int64][]model.Doctor
	doctorByID      map[int64]*model.Doctor
	departmentCalls int
	doctorCalls     int

	listDepartmentsErr error
	listDoctorsErr     error
	onListDoctors      func(departmentID int64)
}

func (s *stubRefClient) ListDepartments(ctx context.Context) ([]model.Department, error) {
	s.departmentCalls++
	if s.listDepartmentsErr != nil {
		return nil, s.listDepartmentsErr
	}
	return s.departments, nil
}

func (s *stubRefClient) ListDoctors(ctx context.Context, departmentID int64) ([]model.Doctor, error) {
	s.doctorCalls++
	if s.onListDoctors != nil {
		s.onListDoctors(departmentID)
	}
	if s.listDoctorsErr != nil {
		return nil, s.listDoctorsErr
	}
	return s.doctorsByDept[departmentID], nil
}

func (s *stubRefClient) GetDoctor(ctx context.Context, doctorID int64) (*model.Doctor, error) {
	doc, ok := s.doctorByID[doctorID]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	return doc, nil
}

type stubSlotClient struct {
	slotsByDoctor map[int64][]model.TimeSlot
	calls         int

	err         error
	onListSlots func(doctorID int64)
}

func (s *stubSlotClient) ListSlots(ctx context.Context, doctorID int64, insurance model.Insurance) ([]model.TimeSlot, error) {
	s.calls++
	if s.onListSlots != nil {
		s.onListSlots(doctorID)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.slotsByDoctor[doctorID], nil
}

func slotAt(id, doctorID int64, ts string, insurance model.Insurance) model.TimeSlot {
	var st model.SlotTime
	if err := st.UnmarshalJSON([]byte(`"` + ts + `"`)); err != nil {
		panic(err)
	}
	return model.TimeSlot{ID: id, DateTime: st, Insurance: insurance, DoctorID: doctorID}
}

func newTestService(t *testing.T) (*Service, *stubRefClient, *stubSlotClient, store.ArtifactStore) {
	t.Helper()

	ref := &stubRefClient{
		departments: []model.Department{
			{ID: 1, Title: "Cardiology"},
			{ID: 2, Title: "Dermatology"},
		},
		doctorsByDept: map[int64][]model.Doctor{
			1: {
				{ID: 10, LastName: "Müller", DepartmentID: 1},
				{ID: 11, FirstName: "Eva", LastName: "Schmidt", DepartmentID: 1},
			},
			2: {
				{ID: 20, FirstName: "Jan", LastName: "Weber", DepartmentID: 2},
			},
		},
		doctorByID: map[int64]*model.Doctor{
			10: {ID: 10, LastName: "Müller", DepartmentID: 1, Specialization: "Cardiology"},
		},
	}
	slots := &stubSlotClient{
		slotsByDoctor: map[int64][]model.TimeSlot{
			10: {
				slotAt(100, 10, "2025-03-04T09:00:00", model.InsurancePrivate),
				slotAt(101, 10, "2025-03-04T10:00:00", model.InsurancePrivate),
			},
			11: {
				slotAt(110, 11, "2025-03-05T14:00:00", model.InsurancePrivate),
			},
		},
	}
	artifacts := store.NewMemoryArtifactStore()
	svc := NewService(ref, slots, store.NewMemoryDraftStore(), artifacts, nil, zerolog.Nop())
	return svc, ref, slots, artifacts
}

func TestStartFetchesDepartmentsOnce(t *testing.T) {
	svc, ref, _, _ := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, draft.SessionID)
	assert.Equal(t, model.StepPatientCheck, draft.Step)
	assert.Len(t, draft.Departments, 2)
	assert.Equal(t, 1, ref.departmentCalls)

	// Walking through the flow never refetches the department list.
	draft, err = svc.AnswerPatientStatus(ctx, draft.SessionID, true)
	require.NoError(t, err)
	_, err = svc.ChooseInsurance(ctx, draft.SessionID, model.InsurancePublic)
	require.NoError(t, err)
	_, err = svc.ChooseDepartment(ctx, draft.SessionID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.departmentCalls)
}

func TestNewPatientHaltsFlow(t *testing.T) {
	svc, ref, slots, _ := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Start(ctx)
	require.NoError(t, err)

	answered, err := svc.AnswerPatientStatus(ctx, draft.SessionID, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
	assert.Contains(t, err.Error(), "not accepting new patients")
	assert.Equal(t, model.PatientStatusNew, answered.PatientStatus)
	assert.Equal(t, model.StepPatientCheck, answered.Step)

	// Every later operation stays blocked with the same terminal message.
	_, err = svc.ChooseInsurance(ctx, draft.SessionID, model.InsurancePublic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accepting new patients")

	_, err = svc.ShowSlots(ctx, draft.SessionID)
	require.Error(t, err)

	// The halt never triggers any availability fetches.
	assert.Equal(t, 0, ref.doctorCalls)
	assert.Equal(t, 0, slots.calls)
}

func TestStepsAdvanceOneAtATime(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Start(ctx)
	require.NoError(t, err)
	sid := draft.SessionID
	assert.Equal(t, 1, draft.Step)

	// Guards refuse skipping ahead.
	_, err = svc.ChooseInsurance(ctx, sid, model.InsurancePublic)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
	_, err = svc.ChooseDepartment(ctx, sid, 1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
	_, err = svc.ShowSlots(ctx, sid)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	draft, err = svc.AnswerPatientStatus(ctx, sid, true)
	require.NoError(t, err)
	assert.Equal(t, 2, draft.Step)

	draft, err = svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	require.NoError(t, err)
	assert.Equal(t, 3, draft.Step)

	draft, err = svc.ChooseDepartment(ctx, sid, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, draft.Step)

	draft, err = svc.ChooseDoctor(ctx, sid, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, draft.Step)

	draft, err = svc.ShowSlots(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 5, draft.Step)
}

func TestBackRetainsEnteredData(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	_, err := svc.AnswerPatientStatus(ctx, sid, true)
	require.NoError(t, err)
	_, err = svc.ChooseInsurance(ctx, sid, model.InsurancePublic)
	require.NoError(t, err)

	draft, err = svc.Back(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, draft.Step)
	assert.Equal(t, model.InsurancePublic, draft.Insurance)
	assert.Equal(t, model.PatientStatusReturning, draft.PatientStatus)

	// Floor is step 1, going back further is a no-op.
	draft, err = svc.Back(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, draft.Step)
	draft, err = svc.Back(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, draft.Step)
	assert.Equal(t, model.InsurancePublic, draft.Insurance)
}

func TestDepartmentChangeInvalidatesDownstream(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	svc.ChooseDepartment(ctx, sid, 1)
	svc.ChooseDoctor(ctx, sid, 10)
	draft, err := svc.ShowSlots(ctx, sid)
	require.NoError(t, err)
	_, err = svc.SelectSlot(ctx, sid, 100)
	require.NoError(t, err)

	draft, err = svc.ChooseDepartment(ctx, sid, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), draft.DepartmentID)
	assert.Equal(t, int64(0), draft.DoctorID)
	assert.Empty(t, draft.AvailableSlots)
	assert.Equal(t, int64(0), draft.SelectedSlotID)
	assert.Equal(t, int64(20), draft.Doctors[0].ID)
}

func TestInsuranceChangeInvalidatesSlots(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	svc.ChooseDepartment(ctx, sid, 1)
	svc.ChooseDoctor(ctx, sid, 10)
	svc.ShowSlots(ctx, sid)
	svc.SelectSlot(ctx, sid, 100)

	// Back to the insurance step, pick the other scheme.
	draft, err := svc.ChooseInsurance(ctx, sid, model.InsurancePublic)
	require.NoError(t, err)
	assert.Empty(t, draft.AvailableSlots)
	assert.Equal(t, int64(0), draft.SelectedSlotID)
	// The doctor choice itself survives.
	assert.Equal(t, int64(10), draft.DoctorID)

	// Re-picking the same scheme changes nothing downstream.
	svc.ChooseDepartment(ctx, sid, 1)
	svc.ChooseDoctor(ctx, sid, 10)
	svc.ShowSlots(ctx, sid)
	svc.SelectSlot(ctx, sid, 100)
	draft, err = svc.ChooseInsurance(ctx, sid, model.InsurancePublic)
	require.NoError(t, err)
	assert.Equal(t, int64(100), draft.SelectedSlotID)
}

func TestShowSlotsGuards(t *testing.T) {
	svc, _, slots, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	svc.ChooseDepartment(ctx, sid, 1)

	_, err := svc.ShowSlots(ctx, sid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "choose a doctor first")
	assert.Equal(t, 0, slots.calls)
}

func TestSlotFetchFailureKeepsStep(t *testing.T) {
	svc, _, slots, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	svc.ChooseDepartment(ctx, sid, 1)
	svc.ChooseDoctor(ctx, sid, 10)

	slots.err = apperrors.Unavailable("list_slots is currently unavailable", nil)
	_, err := svc.ShowSlots(ctx, sid)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnavailable))

	draft, err = svc.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.StepDoctor, draft.Step)

	// The flow recovers once the backend does.
	slots.err = nil
	draft, err = svc.ShowSlots(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.StepSlots, draft.Step)
	assert.Len(t, draft.AvailableSlots, 2)
}

func TestSupersededDoctorFetchIsDiscarded(t *testing.T) {
	svc, ref, _, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)

	// While the fetch for department 1 is in flight, the user switches to
	// department 2 and that fetch completes first.
	ref.onListDoctors = func(departmentID int64) {
		if departmentID == 1 {
			ref.onListDoctors = nil
			_, err := svc.ChooseDepartment(ctx, sid, 2)
			require.NoError(t, err)
		}
	}

	draft, err := svc.ChooseDepartment(ctx, sid, 1)
	require.NoError(t, err)

	// The late department-1 result must not overwrite department 2's list.
	assert.Equal(t, int64(2), draft.DepartmentID)
	require.Len(t, draft.Doctors, 1)
	assert.Equal(t, int64(20), draft.Doctors[0].ID)
}

func TestSupersededSlotFetchIsDiscarded(t *testing.T) {
	svc, _, slots, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	svc.ChooseDepartment(ctx, sid, 1)
	svc.ChooseDoctor(ctx, sid, 10)

	// Doctor 10's fetch is overtaken by a switch to doctor 11.
	slots.onListSlots = func(doctorID int64) {
		if doctorID == 10 {
			slots.onListSlots = nil
			_, err := svc.ChooseDoctor(ctx, sid, 11)
			require.NoError(t, err)
			_, err = svc.ShowSlots(ctx, sid)
			require.NoError(t, err)
		}
	}

	draft, err := svc.ShowSlots(ctx, sid)
	require.NoError(t, err)

	assert.Equal(t, int64(11), draft.DoctorID)
	require.Len(t, draft.AvailableSlots, 1)
	assert.Equal(t, int64(110), draft.AvailableSlots[0].ID)
}

func TestSelectSlotRejectsUnknownAndBooked(t *testing.T) {
	svc, _, slots, _ := newTestService(t)
	ctx := context.Background()

	booked := slotAt(102, 10, "2025-03-04T11:00:00", model.InsurancePrivate)
	booked.IsBooked = true
	slots.slotsByDoctor[10] = append(slots.slotsByDoctor[10], booked)

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	svc.ChooseDepartment(ctx, sid, 1)
	svc.ChooseDoctor(ctx, sid, 10)
	svc.ShowSlots(ctx, sid)

	_, err := svc.SelectSlot(ctx, sid, 999)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	_, err = svc.SelectSlot(ctx, sid, 102)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	draft, err = svc.SelectSlot(ctx, sid, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(101), draft.SelectedSlotID)
}

func TestSubmitWritesArtifact(t *testing.T) {
	svc, _, _, artifacts := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	svc.ChooseDepartment(ctx, sid, 1)
	svc.ChooseDoctor(ctx, sid, 10)
	svc.ShowSlots(ctx, sid)

	_, err := svc.Submit(ctx, sid)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest), "submit without a selection must fail")

	_, err = svc.SelectSlot(ctx, sid, 100)
	require.NoError(t, err)

	artifact, err := svc.Submit(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, &model.BookingArtifact{
		DoctorName:   "Müller",
		Date:         "2025-03-04",
		SlotID:       100,
		Insurance:    model.InsurancePrivate,
		DoctorID:     "10",
		DepartmentID: "1",
	}, artifact)

	stored, err := artifacts.Load(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, artifact, stored)

	// A second submit replaces the artifact wholesale.
	svc.SelectSlot(ctx, sid, 101)
	_, err = svc.Submit(ctx, sid)
	require.NoError(t, err)
	stored, err = artifacts.Load(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, int64(101), stored.SlotID)
}

func TestCancelDiscardsDraft(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	require.NoError(t, svc.Cancel(ctx, draft.SessionID))

	_, err := svc.Get(ctx, draft.SessionID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestResetKeepsDepartments(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePublic)

	fresh, err := svc.Reset(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.StepPatientCheck, fresh.Step)
	assert.Equal(t, model.PatientStatusUnknown, fresh.PatientStatus)
	assert.Equal(t, model.InsuranceUnset, fresh.Insurance)
	assert.Len(t, fresh.Departments, 2)
}

func TestDoctorDetailLeavesDraftUntouched(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	draft, _ := svc.Start(ctx)
	sid := draft.SessionID
	svc.AnswerPatientStatus(ctx, sid, true)
	svc.ChooseInsurance(ctx, sid, model.InsurancePrivate)
	svc.ChooseDepartment(ctx, sid, 1)
	svc.ChooseDoctor(ctx, sid, 10)
	before, err := svc.Get(ctx, sid)
	require.NoError(t, err)

	doctor, err := svc.DoctorDetail(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", doctor.Specialization)

	after, err := svc.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.DoctorID, after.DoctorID)
	assert.Equal(t, before.DoctorEpoch, after.DoctorEpoch)
}
