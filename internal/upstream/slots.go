package upstream

import (
	"context"
	"fmt"
	"net/url"

	"github.com/meditermin/booking-api/internal/model"
)

// ListSlots fetches the open time slots of a doctor for one insurance
// scheme. The backend is asked to filter, and the result is filtered
// again here: a slot whose insurance does not equal the requested scheme
// never reaches the wizard, whatever the backend returned.
func (c *Client) ListSlots(ctx context.Context, doctorID int64, insurance model.Insurance) ([]model.TimeSlot, error) {
	path := fmt.Sprintf("/api/timeslots/doctor/%d?TypeOfInsurance=%s", doctorID, url.QueryEscape(string(insurance)))

	var slots []model.TimeSlot
	if err := c.get(ctx, "list_slots", path, &slots); err != nil {
		return nil, err
	}

	filtered := make([]model.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Insurance == insurance {
			filtered = append(filtered, slot)
		}
	}
	return filtered, nil
}
