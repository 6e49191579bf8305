package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/college-admin-api/internal/models"
)

// DashboardRepository computes headline counts for the admin dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary returns counts as of today, with substitutions counted from monthStart.
func (r *DashboardRepository) Summary(ctx context.Context, today, monthStart string) (*models.DashboardSummary, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM teachers WHERE is_active) AS active_teachers,
	(SELECT COUNT(*) FROM students WHERE is_active) AS active_students,
	(SELECT COUNT(*) FROM lectures WHERE date = $1 AND status <> 'cancelled') AS lectures_today,
	(SELECT COUNT(*) FROM lectures l
		WHERE l.date >= $1 AND l.status = 'scheduled' AND l.substitute_teacher_id IS NULL
		AND (EXISTS (
			SELECT 1 FROM leave_requests lr
			WHERE lr.teacher_id = l.scheduled_teacher_id AND lr.status = 'approved' AND lr.start_date <= l.date AND lr.end_date >= l.date
		) OR EXISTS (
			SELECT 1 FROM substitute_requests sr WHERE sr.lecture_id = l.id AND sr.status = 'pending'
		))) AS lectures_needing_cover,
	(SELECT COUNT(*) FROM leave_requests WHERE status = 'pending') AS pending_leave_requests,
	(SELECT COUNT(*) FROM substitute_assignments WHERE created_at::date >= $2 AND created_at::date <= $1) AS substitutions_this_month`

	var summary models.DashboardSummary
	if err := r.db.GetContext(ctx, &summary, query, today, monthStart); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return &summary, nil
}
