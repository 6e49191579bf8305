package models

import "time"

// LeaveStatus is the approval state of a leave request.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusDenied   LeaveStatus = "denied"
)

// LeaveRequest is a teacher's absence request covering an inclusive date range.
type LeaveRequest struct {
	ID           string      `db:"id" json:"id"`
	TeacherID    string      `db:"teacher_id" json:"teacher_id"`
	StartDate    string      `db:"start_date" json:"start_date"`
	EndDate      string      `db:"end_date" json:"end_date"`
	LeaveType    string      `db:"leave_type" json:"leave_type"`
	Reason       string      `db:"reason" json:"reason"`
	Status       LeaveStatus `db:"status" json:"status"`
	DecidedBy    *string     `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt    *time.Time  `db:"decided_at" json:"decided_at,omitempty"`
	DecisionNote *string     `db:"decision_note" json:"decision_note,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the leave spans the given YYYY-MM-DD date.
func (l LeaveRequest) Covers(date string) bool {
	return l.StartDate <= date && date <= l.EndDate
}

// LeaveFilter captures filtering options for listing leave requests.
type LeaveFilter struct {
	TeacherID string
	Status    string
	DateFrom  string
	DateTo    string
	Page      int
	PageSize  int
}
