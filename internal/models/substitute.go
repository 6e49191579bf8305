package models

import "time"

// SubstituteAssignment pairs an absent teacher's lecture with its covering
// teacher. Rows are never updated except to clear Active when superseded.
type SubstituteAssignment struct {
	ID                  string    `db:"id" json:"id"`
	LectureID           string    `db:"lecture_id" json:"lecture_id"`
	OriginalTeacherID   *string   `db:"original_teacher_id" json:"original_teacher_id,omitempty"`
	SubstituteTeacherID string    `db:"substitute_teacher_id" json:"substitute_teacher_id"`
	LeaveRequestID      *string   `db:"leave_request_id" json:"leave_request_id,omitempty"`
	Notes               *string   `db:"notes" json:"notes,omitempty"`
	IsOverride          bool      `db:"is_override" json:"is_override"`
	Active              bool      `db:"active" json:"active"`
	AssignedBy          *string   `db:"assigned_by" json:"assigned_by,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// SubstituteRequestStatus tracks a teacher-initiated coverage request.
type SubstituteRequestStatus string

const (
	SubstituteRequestPending   SubstituteRequestStatus = "pending"
	SubstituteRequestFulfilled SubstituteRequestStatus = "fulfilled"
	SubstituteRequestCancelled SubstituteRequestStatus = "cancelled"
)

// SubstituteRequest records a teacher asking for cover on a lecture.
type SubstituteRequest struct {
	ID             string                  `db:"id" json:"id"`
	LectureID      string                  `db:"lecture_id" json:"lecture_id"`
	RequestedBy    string                  `db:"requested_by" json:"requested_by"`
	LeaveRequestID *string                 `db:"leave_request_id" json:"leave_request_id,omitempty"`
	Notes          *string                 `db:"notes" json:"notes,omitempty"`
	Status         SubstituteRequestStatus `db:"status" json:"status"`
	CreatedAt      time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time               `db:"updated_at" json:"updated_at"`
}

// SubstituteReportRow enriches an assignment with names for reporting.
type SubstituteReportRow struct {
	SubstituteAssignment
	Subject               string  `db:"subject" json:"subject"`
	ClassYear             string  `db:"class_year" json:"class_year"`
	Division              string  `db:"division" json:"division"`
	LectureDate           string  `db:"lecture_date" json:"lecture_date"`
	StartTime             string  `db:"start_time" json:"start_time"`
	EndTime               string  `db:"end_time" json:"end_time"`
	OriginalTeacherName   *string `db:"original_teacher_name" json:"original_teacher_name,omitempty"`
	SubstituteTeacherName string  `db:"substitute_teacher_name" json:"substitute_teacher_name"`
}

// WorkloadCount is the number of assignments a substitute performed in a window.
type WorkloadCount struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	Count     int    `db:"count" json:"count"`
}

// CoverageNeed is a lecture with no substitute yet whose scheduled teacher is
// on approved leave, or for which a teacher filed a pending request.
type CoverageNeed struct {
	Lecture
	LeaveRequestID      *string `db:"leave_request_id" json:"leave_request_id"`
	SubstituteRequestID *string `db:"substitute_request_id" json:"substitute_request_id,omitempty"`
	OriginalTeacherName string  `db:"original_teacher_name" json:"original_teacher_name"`
	Department          string  `db:"department" json:"department"`
}

// CoverageFilter narrows the needing-coverage listing.
type CoverageFilter struct {
	FromDate   string
	ToDate     string
	Department string
}

// SubstituteReportFilter bounds the assignment history report by lecture date.
type SubstituteReportFilter struct {
	StartDate string
	EndDate   string
	TeacherID string
	Limit     int
}
