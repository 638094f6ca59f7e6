package model

import (
	"time"
)

// Wizard steps, strictly linear.
const (
	StepPatientCheck = 1
	StepInsurance    = 2
	StepDepartment   = 3
	StepDoctor       = 4
	StepSlots        = 5
)

// PatientStatus is the answer to the returning-patient question.
type PatientStatus string

const (
	PatientStatusUnknown   PatientStatus = ""
	PatientStatusReturning PatientStatus = "RETURNING"
	PatientStatusNew       PatientStatus = "NEW"
)

// Insurance is the insurance scheme used to filter time slots.
type Insurance string

const (
	InsuranceUnset   Insurance = ""
	InsurancePublic  Insurance = "PUBLIC"
	InsurancePrivate Insurance = "PRIVATE"
)

// BookingDraft is the in-progress booking selection. It is owned by the
// wizard: only wizard transitions mutate it, and every mutation goes
// back through the draft store as a whole.
type BookingDraft struct {
	SessionID     string        `json:"session_id"`
	Step          int           `json:"step"`
	PatientStatus PatientStatus `json:"patient_status"`
	Insurance     Insurance     `json:"insurance"`
	DepartmentID  int64         `json:"department_id,omitempty"`
	DoctorID      int64         `json:"doctor_id,omitempty"`

	Departments    []Department `json:"departments,omitempty"`
	Doctors        []Doctor     `json:"doctors,omitempty"`
	AvailableSlots []TimeSlot   `json:"available_slots,omitempty"`
	SelectedSlotID int64        `json:"selected_slot_id,omitempty"`

	// DoctorEpoch and SlotEpoch are bumped whenever the input a fetch
	// depends on changes; a fetch result is applied only while its epoch
	// is still current.
	DoctorEpoch uint64 `json:"doctor_epoch"`
	SlotEpoch   uint64 `json:"slot_epoch"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SelectedSlot returns the currently selected slot, or nil. The selected
// slot is always an element of AvailableSlots.
func (d *BookingDraft) SelectedSlot() *TimeSlot {
	if d.SelectedSlotID == 0 {
		return nil
	}
	for i := range d.AvailableSlots {
		if d.AvailableSlots[i].ID == d.SelectedSlotID {
			return &d.AvailableSlots[i]
		}
	}
	return nil
}

// HasDepartment reports whether the id is part of the fetched list.
func (d *BookingDraft) HasDepartment(id int64) bool {
	for i := range d.Departments {
		if d.Departments[i].ID == id {
			return true
		}
	}
	return false
}

// Doctor returns the doctor with the given id from the current list.
func (d *BookingDraft) Doctor(id int64) *Doctor {
	for i := range d.Doctors {
		if d.Doctors[i].ID == id {
			return &d.Doctors[i]
		}
	}
	return nil
}

// InvalidateDoctor clears the doctor choice and everything downstream of
// it. Called when the department changes.
func (d *BookingDraft) InvalidateDoctor() {
	d.DoctorID = 0
	d.Doctors = nil
	d.InvalidateSlots()
}

// InvalidateSlots clears fetched slots and the selection. Called when
// insurance or doctor changes, and whenever slots are refetched.
func (d *BookingDraft) InvalidateSlots() {
	d.AvailableSlots = nil
	d.SelectedSlotID = 0
}
