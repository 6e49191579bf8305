package dto

import "github.com/campusdesk/college-admin-api/internal/models"

// CreateLectureRequest schedules a single dated lecture.
type CreateLectureRequest struct {
	Subject            string  `json:"subject" validate:"required,max=255"`
	ClassYear          string  `json:"class_year" validate:"required,max=20"`
	Division           string  `json:"division" validate:"required,max=10"`
	Room               string  `json:"room" validate:"omitempty,max=50"`
	Date               string  `json:"date" validate:"required,isodate"`
	StartTime          string  `json:"start_time" validate:"required,hhmm"`
	EndTime            string  `json:"end_time" validate:"required,hhmm"`
	ScheduledTeacherID *string `json:"scheduled_teacher_id" validate:"omitempty,uuid"`
}

// RecurringLectureRequest expands a weekly rule into dated lectures.
// RRule, when set, overrides DayOfWeek and Until.
type RecurringLectureRequest struct {
	Subject            string  `json:"subject" validate:"required,max=255"`
	ClassYear          string  `json:"class_year" validate:"required,max=20"`
	Division           string  `json:"division" validate:"required,max=10"`
	Room               string  `json:"room" validate:"omitempty,max=50"`
	DayOfWeek          string  `json:"day_of_week" validate:"required_without=RRule,omitempty,weekday"`
	StartDate          string  `json:"start_date" validate:"required,isodate"`
	Until              string  `json:"until" validate:"required_without=RRule,omitempty,isodate"`
	RRule              string  `json:"rrule" validate:"omitempty,max=255"`
	StartTime          string  `json:"start_time" validate:"required,hhmm"`
	EndTime            string  `json:"end_time" validate:"required,hhmm"`
	ScheduledTeacherID *string `json:"scheduled_teacher_id" validate:"omitempty,uuid"`
	PartialOnError     bool    `json:"partial_on_error"`
}

// RecurringLectureResult reports what a recurring batch created and skipped.
type RecurringLectureResult struct {
	SeriesID  string                   `json:"series_id"`
	Created   []models.Lecture         `json:"created"`
	Conflicts []models.LectureConflict `json:"conflicts,omitempty"`
}

// UpdateLectureRequest edits or reschedules a lecture. Nil fields are unchanged.
type UpdateLectureRequest struct {
	Subject            *string `json:"subject" validate:"omitempty,max=255"`
	Room               *string `json:"room" validate:"omitempty,max=50"`
	Date               *string `json:"date" validate:"omitempty,isodate"`
	StartTime          *string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime            *string `json:"end_time" validate:"omitempty,hhmm"`
	ScheduledTeacherID *string `json:"scheduled_teacher_id" validate:"omitempty,uuid"`
}

// WeeklyTimetableQuery selects the week and audience of the timetable view.
type WeeklyTimetableQuery struct {
	WeekOf    string `form:"week_of" validate:"omitempty,isodate"`
	TeacherID string `form:"teacher_id" validate:"omitempty,uuid"`
	ClassYear string `form:"class_year"`
	Division  string `form:"division"`
}

// WeeklyTimetable is the timetable for one Monday-to-Sunday week.
type WeeklyTimetable struct {
	From string                `json:"from"`
	To   string                `json:"to"`
	Days []models.TimetableDay `json:"days"`
}
