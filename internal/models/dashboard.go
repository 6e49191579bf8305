package models

import "time"

// DashboardSummary aggregates headline counts for the admin dashboard.
type DashboardSummary struct {
	ActiveTeachers         int       `db:"active_teachers" json:"active_teachers"`
	ActiveStudents         int       `db:"active_students" json:"active_students"`
	LecturesToday          int       `db:"lectures_today" json:"lectures_today"`
	LecturesNeedingCover   int       `db:"lectures_needing_cover" json:"lectures_needing_cover"`
	PendingLeaveRequests   int       `db:"pending_leave_requests" json:"pending_leave_requests"`
	SubstitutionsThisMonth int       `db:"substitutions_this_month" json:"substitutions_this_month"`
	GeneratedAt            time.Time `db:"-" json:"generated_at"`
}
