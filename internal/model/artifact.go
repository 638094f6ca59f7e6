package model

import "strconv"

// BookingArtifact is the durable snapshot of a draft written the moment
// the user commits to a slot. It is the only booking state that survives
// the navigation to login and back, and it is always replaced wholesale,
// never merged.
type BookingArtifact struct {
	DoctorName   string    `json:"doctorName"`
	Date         string    `json:"date"`
	SlotID       int64     `json:"slotId"`
	Insurance    Insurance `json:"insurance"`
	DoctorID     string    `json:"doctorId"`
	DepartmentID string    `json:"departmentId"`
}

// NewBookingArtifact builds the artifact from a draft with a selected
// slot. The caller guarantees the selection is present.
func NewBookingArtifact(d *BookingDraft) *BookingArtifact {
	slot := d.SelectedSlot()
	artifact := &BookingArtifact{
		SlotID:       slot.ID,
		Date:         slot.DateTime.DateOnly(),
		Insurance:    d.Insurance,
		DoctorID:     strconv.FormatInt(d.DoctorID, 10),
		DepartmentID: strconv.FormatInt(d.DepartmentID, 10),
	}
	if doc := d.Doctor(d.DoctorID); doc != nil {
		artifact.DoctorName = doc.FullName()
	}
	return artifact
}
