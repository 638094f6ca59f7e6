package upstream

import (
	"context"
	"fmt"

	"github.com/meditermin/booking-api/internal/model"
)

// ConfirmAppointment asks the backend to atomically bind the named time
// slot to the user and mark it reserved. Exactly one request per call;
// retrying is the caller's decision.
func (c *Client) ConfirmAppointment(ctx context.Context, slotID int64, userID, token string) (*model.ConfirmedAppointment, error) {
	req := model.ConfirmAppointmentRequest{
		TimeSlotID: slotID,
		UserID:     userID,
	}

	var appointment model.ConfirmedAppointment
	path := fmt.Sprintf("/api/appointments/%d/confirm", slotID)
	if err := c.post(ctx, "confirm_appointment", path, token, req, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}
