package models

import "time"

// Teacher represents a faculty member.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	EmployeeCode *string   `db:"employee_code" json:"employee_code,omitempty"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Department   string    `db:"department" json:"department"`
	Designation  *string   `db:"designation" json:"designation,omitempty"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	IsHOD        bool      `db:"is_hod" json:"is_hod"`
	IsActingHOD  bool      `db:"is_acting_hod" json:"is_acting_hod"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LeadsDepartment reports whether the teacher is the HOD or is acting for one.
func (t Teacher) LeadsDepartment() bool {
	return t.IsHOD || t.IsActingHOD
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
