package upstream

import (
	"context"
	"fmt"

	"github.com/meditermin/booking-api/internal/model"
)

// ListDepartments fetches all departments. An empty list is a valid
// answer and is distinct from a fetch failure.
func (c *Client) ListDepartments(ctx context.Context) ([]model.Department, error) {
	var departments []model.Department
	if err := c.get(ctx, "list_departments", "/api/departments", &departments); err != nil {
		return nil, err
	}
	return departments, nil
}

// ListDoctors fetches the doctor profiles of one department.
func (c *Client) ListDoctors(ctx context.Context, departmentID int64) ([]model.Doctor, error) {
	var doctors []model.Doctor
	path := fmt.Sprintf("/api/doctor-profiles/department/%d", departmentID)
	if err := c.get(ctx, "list_doctors", path, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

// GetDoctor fetches a single doctor profile for the detail excursion.
func (c *Client) GetDoctor(ctx context.Context, doctorID int64) (*model.Doctor, error) {
	var doctor model.Doctor
	path := fmt.Sprintf("/api/doctor-profiles/%d", doctorID)
	if err := c.get(ctx, "get_doctor", path, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}
