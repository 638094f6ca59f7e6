package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meditermin/booking-api/internal/model"
	"github.com/meditermin/booking-api/internal/store"
	apperrors "github.com/meditermin/booking-api/pkg/errors"
	"github.com/meditermin/booking-api/pkg/metrics"
)

// MsgNewPatientsNotAccepted is the terminal message shown when the
// caller is not a returning patient. The practice does not take new
// patients through this flow.
const MsgNewPatientsNotAccepted = "unfortunately we are not accepting new patients at this time"

// ReferenceClient is the read-only gateway for departments and doctors.
type ReferenceClient interface {
	ListDepartments(ctx context.Context) ([]model.Department, error)
	ListDoctors(ctx context.Context, departmentID int64) ([]model.Doctor, error)
	GetDoctor(ctx context.Context, doctorID int64) (*model.Doctor, error)
}

// SlotClient fetches open time slots filtered by insurance.
type SlotClient interface {
	ListSlots(ctx context.Context, doctorID int64, insurance model.Insurance) ([]model.TimeSlot, error)
}

// Service drives the guided booking flow. Steps advance strictly one at
// a time behind guards; data entered at earlier steps survives going
// back, and anything downstream of a changed input is invalidated.
type Service struct {
	ref       ReferenceClient
	slots     SlotClient
	drafts    store.DraftStore
	artifacts store.ArtifactStore
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewService(ref ReferenceClient, slots SlotClient, drafts store.DraftStore,
	artifacts store.ArtifactStore, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		ref:       ref,
		slots:     slots,
		drafts:    drafts,
		artifacts: artifacts,
		metrics:   m,
		logger:    logger.With().Str("component", "wizard").Logger(),
	}
}

// Start creates a fresh draft and loads the department list, which is
// fetched exactly once per wizard instance.
func (s *Service) Start(ctx context.Context) (*model.BookingDraft, error) {
	departments, err := s.ref.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}

	draft := &model.BookingDraft{
		SessionID:   uuid.NewString(),
		Step:        model.StepPatientCheck,
		Departments: departments,
		CreatedAt:   time.Now(),
	}
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.count("start")
	return draft, nil
}

// Get returns the current draft.
func (s *Service) Get(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	return s.load(ctx, sessionID)
}

// AnswerPatientStatus records the step-1 answer. A "no" halts the flow
// with a terminal message; no fetches are ever triggered for it.
func (s *Service) AnswerPatientStatus(ctx context.Context, sessionID string, returning bool) (*model.BookingDraft, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step != model.StepPatientCheck {
		return nil, apperrors.BadRequest("patient status has already been confirmed", nil)
	}

	if !returning {
		draft.PatientStatus = model.PatientStatusNew
		if err := s.drafts.Put(ctx, draft); err != nil {
			return nil, apperrors.Internal(err)
		}
		s.count("patient_status_rejected")
		return draft, apperrors.BadRequest(MsgNewPatientsNotAccepted, nil)
	}

	draft.PatientStatus = model.PatientStatusReturning
	draft.Step = model.StepInsurance
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.count("patient_status_confirmed")
	return draft, nil
}

// ChooseInsurance records the insurance scheme and moves to the
// department step. A change invalidates any previously fetched slots.
func (s *Service) ChooseInsurance(ctx context.Context, sessionID string, insurance model.Insurance) (*model.BookingDraft, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(draft); err != nil {
		return nil, err
	}
	if draft.Step < model.StepInsurance {
		return nil, apperrors.BadRequest("confirm your patient status first", nil)
	}
	if insurance != model.InsurancePublic && insurance != model.InsurancePrivate {
		return nil, apperrors.BadRequest("unknown insurance type", nil)
	}

	if draft.Insurance != insurance {
		draft.Insurance = insurance
		draft.InvalidateSlots()
	}
	draft.Step = model.StepDepartment
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.count("insurance_chosen")
	return draft, nil
}

// ChooseDepartment records the department and fetches its doctors. The
// fetch is guarded by the draft's doctor epoch: when a later department
// choice has been made by the time this fetch resolves, the result is
// discarded instead of overwriting the newer list.
func (s *Service) ChooseDepartment(ctx context.Context, sessionID string, departmentID int64) (*model.BookingDraft, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(draft); err != nil {
		return nil, err
	}
	if draft.Insurance == model.InsuranceUnset {
		return nil, apperrors.BadRequest("choose an insurance type first", nil)
	}
	if !draft.HasDepartment(departmentID) {
		return nil, apperrors.BadRequest("unknown department", nil)
	}

	if draft.DepartmentID != departmentID {
		draft.DepartmentID = departmentID
		draft.InvalidateDoctor()
	}
	draft.Step = model.StepDepartment
	draft.DoctorEpoch++
	epoch := draft.DoctorEpoch
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, apperrors.Internal(err)
	}

	doctors, err := s.ref.ListDoctors(ctx, departmentID)
	if err != nil {
		// Recoverable: the draft stays on the department step.
		return nil, err
	}

	current, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.DoctorEpoch != epoch {
		s.discard("list_doctors")
		return current, nil
	}

	current.Doctors = doctors
	current.Step = model.StepDoctor
	if err := s.drafts.Put(ctx, current); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.count("department_chosen")
	return current, nil
}

// ChooseDoctor records the doctor selection. The wizard stays on the
// doctor step until slots are explicitly requested.
func (s *Service) ChooseDoctor(ctx context.Context, sessionID string, doctorID int64) (*model.BookingDraft, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(draft); err != nil {
		return nil, err
	}
	if draft.DepartmentID == 0 {
		return nil, apperrors.BadRequest("choose a department first", nil)
	}
	if draft.Doctor(doctorID) == nil {
		return nil, apperrors.BadRequest("doctor is not part of the chosen department", nil)
	}

	if draft.DoctorID != doctorID {
		draft.DoctorID = doctorID
		draft.InvalidateSlots()
	}
	draft.Step = model.StepDoctor
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.count("doctor_chosen")
	return draft, nil
}

// DoctorDetail is the side excursion from the doctor step. It never
// touches the draft, so the wizard resumes exactly where it was.
func (s *Service) DoctorDetail(ctx context.Context, doctorID int64) (*model.Doctor, error) {
	return s.ref.GetDoctor(ctx, doctorID)
}

// ShowSlots performs the explicit slot fetch and advances to the final
// step. Both insurance and doctor must be set; the fetch is epoch
// guarded like the doctor fetch.
func (s *Service) ShowSlots(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(draft); err != nil {
		return nil, err
	}
	if draft.Insurance == model.InsuranceUnset {
		return nil, apperrors.BadRequest("choose an insurance type first", nil)
	}
	if draft.DoctorID == 0 {
		return nil, apperrors.BadRequest("choose a doctor first", nil)
	}

	draft.SlotEpoch++
	epoch := draft.SlotEpoch
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, apperrors.Internal(err)
	}

	slots, err := s.slots.ListSlots(ctx, draft.DoctorID, draft.Insurance)
	if err != nil {
		// Recoverable: the draft stays on the doctor step.
		return nil, err
	}

	current, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.SlotEpoch != epoch {
		s.discard("list_slots")
		return current, nil
	}

	current.AvailableSlots = slots
	current.SelectedSlotID = 0
	current.Step = model.StepSlots
	if err := s.drafts.Put(ctx, current); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.count("slots_fetched")
	return current, nil
}

// SelectSlot marks one of the fetched slots as chosen.
func (s *Service) SelectSlot(ctx context.Context, sessionID string, slotID int64) (*model.BookingDraft, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(draft); err != nil {
		return nil, err
	}
	if draft.Step != model.StepSlots {
		return nil, apperrors.BadRequest("slots have not been fetched yet", nil)
	}

	var slot *model.TimeSlot
	for i := range draft.AvailableSlots {
		if draft.AvailableSlots[i].ID == slotID {
			slot = &draft.AvailableSlots[i]
			break
		}
	}
	if slot == nil {
		return nil, apperrors.BadRequest("slot is not part of the current availability", nil)
	}
	if slot.IsBooked {
		return nil, apperrors.Conflict("slot has already been booked", nil)
	}

	draft.SelectedSlotID = slotID
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.count("slot_selected")
	return draft, nil
}

// Submit snapshots the selection into the durable booking artifact. The
// artifact replaces any previous one wholesale and survives the
// navigation to login and back.
func (s *Service) Submit(ctx context.Context, sessionID string) (*model.BookingArtifact, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(draft); err != nil {
		return nil, err
	}
	if draft.Step != model.StepSlots || draft.SelectedSlot() == nil {
		return nil, apperrors.BadRequest("choose a time slot first", nil)
	}

	artifact := model.NewBookingArtifact(draft)
	if err := s.artifacts.Save(ctx, sessionID, artifact); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.count("submitted")
	return artifact, nil
}

// Back moves one step towards the start, floor 1. Nothing entered at
// earlier steps is cleared.
func (s *Service) Back(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if draft.Step > model.StepPatientCheck {
		draft.Step--
		if err := s.drafts.Put(ctx, draft); err != nil {
			return nil, apperrors.Internal(err)
		}
	}
	s.count("back")
	return draft, nil
}

// Cancel discards the draft entirely. No artifact is written.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	if err := s.drafts.Delete(ctx, sessionID); err != nil {
		return apperrors.Internal(err)
	}
	s.count("cancelled")
	return nil
}

// Reset returns a session to step 1 after a rejected confirmation,
// keeping only the already-fetched department list.
func (s *Service) Reset(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	draft, err := s.load(ctx, sessionID)
	if err != nil && !apperrors.IsCode(err, apperrors.ErrNotFound) {
		return nil, err
	}

	fresh := &model.BookingDraft{
		SessionID: sessionID,
		Step:      model.StepPatientCheck,
		CreatedAt: time.Now(),
	}
	if draft != nil {
		fresh.Departments = draft.Departments
	}
	if err := s.drafts.Put(ctx, fresh); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.count("reset")
	return fresh, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*model.BookingDraft, error) {
	if sessionID == "" {
		return nil, apperrors.BadRequest("missing booking session", nil)
	}
	draft, err := s.drafts.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("booking draft", err)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load draft: %w", err))
	}
	return draft, nil
}

func (s *Service) ensureActive(draft *model.BookingDraft) error {
	if draft.PatientStatus == model.PatientStatusNew {
		return apperrors.BadRequest(MsgNewPatientsNotAccepted, nil)
	}
	return nil
}

func (s *Service) count(transition string) {
	if s.metrics != nil {
		s.metrics.WizardTransitions.WithLabelValues(transition).Inc()
	}
}

func (s *Service) discard(operation string) {
	s.logger.Debug().Str("operation", operation).Msg("discarding superseded fetch result")
	if s.metrics != nil {
		s.metrics.StaleFetchDiscards.WithLabelValues(operation).Inc()
	}
}
