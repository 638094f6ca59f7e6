package model

// ConfirmAppointmentRequest is the body of the atomic confirmation call.
type ConfirmAppointmentRequest struct {
	TimeSlotID int64  `json:"timeSlotId"`
	UserID     string `json:"userId"`
}

// ConfirmedAppointment is the backend's view of a confirmed booking.
type ConfirmedAppointment struct {
	ID         int64  `json:"id"`
	TimeSlotID int64  `json:"timeSlotId"`
	UserID     string `json:"userId"`
	Status     string `json:"status"`
	DateTime   string `json:"dateTime,omitempty"`
	DoctorName string `json:"doctorName,omitempty"`
}
