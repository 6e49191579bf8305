package models

import "time"

// LectureStatus tracks a lecture through its lifecycle.
type LectureStatus string

const (
	LectureStatusScheduled   LectureStatus = "scheduled"
	LectureStatusCompleted   LectureStatus = "completed"
	LectureStatusCancelled   LectureStatus = "cancelled"
	LectureStatusSubAssigned LectureStatus = "sub_assigned"
)

// Lecture is a single dated timetable entry. Date is stored as YYYY-MM-DD and
// times as 24-hour HH:MM strings.
type Lecture struct {
	ID                  string        `db:"id" json:"id"`
	Subject             string        `db:"subject" json:"subject"`
	ClassYear           string        `db:"class_year" json:"class_year"`
	Division            string        `db:"division" json:"division"`
	Room                string        `db:"room" json:"room"`
	Date                string        `db:"date" json:"date"`
	DayOfWeek           string        `db:"day_of_week" json:"day_of_week"`
	StartTime           string        `db:"start_time" json:"start_time"`
	EndTime             string        `db:"end_time" json:"end_time"`
	ScheduledTeacherID  *string       `db:"scheduled_teacher_id" json:"scheduled_teacher_id,omitempty"`
	SubstituteTeacherID *string       `db:"substitute_teacher_id" json:"substitute_teacher_id,omitempty"`
	Status              LectureStatus `db:"status" json:"status"`
	SeriesID            *string       `db:"series_id" json:"series_id,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

// ScheduledTeacher returns the owning teacher id or an empty string.
func (l Lecture) ScheduledTeacher() string {
	if l.ScheduledTeacherID == nil {
		return ""
	}
	return *l.ScheduledTeacherID
}

// LectureFilter describes query params for listing lectures.
type LectureFilter struct {
	DateFrom  string
	DateTo    string
	TeacherID string
	ClassYear string
	Division  string
	Room      string
	Status    string
	Page      int
	PageSize  int
	SortOrder string
}

// LectureConflict describes an existing lecture that collides with a proposed one.
type LectureConflict struct {
	LectureID string `json:"lecture_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	TeacherID string `json:"teacher_id,omitempty"`
	Room      string `json:"room"`
	Dimension string `json:"dimension"`
}

// LectureConflictError is returned when a lecture collides with an existing one.
type LectureConflictError struct {
	Message  string          `json:"message"`
	Conflict LectureConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *LectureConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// TimetableDay groups lectures for one weekday in the weekly view.
type TimetableDay struct {
	DayOfWeek string    `json:"day_of_week"`
	Lectures  []Lecture `json:"lectures"`
}
