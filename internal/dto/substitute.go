package dto

import (
	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/substitution"
)

// AssignSubstituteRequest commits a substitute for a lecture. Override lifts
// the same-department restriction for this request only and requires Notes.
type AssignSubstituteRequest struct {
	LectureID           string  `json:"lecture_id" validate:"required"`
	OriginalTeacherID   *string `json:"original_teacher_id"`
	SubstituteTeacherID string  `json:"substitute_teacher_id" validate:"required"`
	LeaveRequestID      *string `json:"leave_request_id"`
	Notes               *string `json:"notes" validate:"omitempty,max=1000"`
	Override            bool    `json:"override"`
}

// SubstituteRequestPayload asks for cover on a lecture.
type SubstituteRequestPayload struct {
	LectureID      string  `json:"lecture_id" validate:"required"`
	LeaveRequestID *string `json:"leave_request_id"`
	Notes          *string `json:"notes" validate:"omitempty,max=1000"`
}

// AvailableTeachersResponse lists ranked candidates for one lecture.
type AvailableTeachersResponse struct {
	Lecture    models.Lecture                 `json:"lecture"`
	Department string                         `json:"department,omitempty"`
	Override   bool                           `json:"override"`
	Candidates []substitution.RankedCandidate `json:"candidates"`
}

// AssignSubstituteResponse returns the committed assignment with the updated lecture.
type AssignSubstituteResponse struct {
	Assignment models.SubstituteAssignment `json:"assignment"`
	Lecture    models.Lecture              `json:"lecture"`
}

// WorkloadResponse is a teacher's substitution count for the current month.
type WorkloadResponse struct {
	TeacherID string            `json:"teacher_id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Count     int               `json:"count"`
	Band      substitution.Band `json:"band"`
}
