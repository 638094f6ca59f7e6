package model

// Department is a medical department as served by the hospital backend.
// Read-only from the wizard's perspective.
type Department struct {
	ID    int64  `json:"id"`
	Title string `json:"titleDepartment"`
}

// Doctor is a doctor profile as served by the hospital backend.
// Read-only from the wizard's perspective.
type Doctor struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	DepartmentID    int64  `json:"departmentId"`
	Specialization  string `json:"specialization"`
	ExperienceYears int    `json:"experienceYears"`
	PhotoURL        string `json:"photoUrl"`
}

// FullName is the display name used on the booking artifact.
func (d Doctor) FullName() string {
	if d.FirstName == "" {
		return d.LastName
	}
	return d.FirstName + " " + d.LastName
}
