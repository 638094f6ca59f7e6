package model

import (
	"fmt"
	"strings"
	"time"
)

// slotTimeLayouts are the timestamp shapes the backend has been seen to
// produce. None carry a zone; slot times are clinic-local.
var slotTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// SlotTime is the timestamp of a bookable slot.
type SlotTime struct {
	time.Time
}

func (t *SlotTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range slotTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized slot time %q", s)
}

func (t SlotTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format("2006-01-02T15:04:05") + `"`), nil
}

// DateOnly is the calendar-date part used on the booking artifact.
func (t SlotTime) DateOnly() string {
	return t.Format("2006-01-02")
}

// TimeSlot is a bookable doctor/time/insurance combination. Immutable
// once fetched; a slot booked by another actor only shows up through a
// refetch or a failed confirmation.
type TimeSlot struct {
	ID        int64     `json:"id"`
	DateTime  SlotTime  `json:"dateTime"`
	Insurance Insurance `json:"insurance"`
	DoctorID  int64     `json:"doctorId"`
	IsBooked  bool      `json:"isBooked"`
}
