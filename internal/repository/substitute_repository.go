package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/college-admin-api/internal/models"
)

const prefixedLectureColumns = "l.id, l.subject, l.class_year, l.division, l.room, l.date, l.day_of_week, l.start_time, l.end_time, l.scheduled_teacher_id, l.substitute_teacher_id, l.status, l.series_id, l.created_at, l.updated_at"

// SubstituteRepository persists substitute assignments and coverage requests.
type SubstituteRepository struct {
	db *sqlx.DB
}

// NewSubstituteRepository constructs a SubstituteRepository.
func NewSubstituteRepository(db *sqlx.DB) *SubstituteRepository {
	return &SubstituteRepository{db: db}
}

// ListNeedingCoverage returns scheduled lectures without a substitute whose
// teacher has approved leave on the lecture date or that carry a pending
// substitute request.
func (r *SubstituteRepository) ListNeedingCoverage(ctx context.Context, filter models.CoverageFilter) ([]models.CoverageNeed, error) {
	conditions := []string{"l.substitute_teacher_id IS NULL", "l.status = 'scheduled'", "(lr.id IS NOT NULL OR sr.id IS NOT NULL)"}
	var args []interface{}
	if filter.FromDate != "" {
		conditions = append(conditions, fmt.Sprintf("l.date >= $%d", len(args)+1))
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		conditions = append(conditions, fmt.Sprintf("l.date <= $%d", len(args)+1))
		args = append(args, filter.ToDate)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(t.department) = LOWER($%d)", len(args)+1))
		args = append(args, strings.TrimSpace(filter.Department))
	}

	query := fmt.Sprintf(`SELECT %s, COALESCE(lr.id, sr.leave_request_id) AS leave_request_id, sr.id AS substitute_request_id,
	COALESCE(t.name, '') AS original_teacher_name, COALESCE(t.department, '') AS department
FROM lectures l
LEFT JOIN teachers t ON t.id = l.scheduled_teacher_id
LEFT JOIN LATERAL (
	SELECT id FROM leave_requests
	WHERE teacher_id = l.scheduled_teacher_id AND status = 'approved' AND start_date <= l.date AND end_date >= l.date
	ORDER BY created_at ASC LIMIT 1
) lr ON TRUE
LEFT JOIN substitute_requests sr ON sr.lecture_id = l.id AND sr.status = 'pending'
WHERE %s
ORDER BY l.date ASC, l.start_time ASC, l.id ASC`, prefixedLectureColumns, strings.Join(conditions, " AND "))

	var needs []models.CoverageNeed
	if err := r.db.SelectContext(ctx, &needs, query, args...); err != nil {
		return nil, fmt.Errorf("list lectures needing coverage: %w", err)
	}
	return needs, nil
}

// CountWorkload returns assignment counts per substitute for assignments
// created between from and to inclusive (YYYY-MM-DD).
func (r *SubstituteRepository) CountWorkload(ctx context.Context, from, to string) ([]models.WorkloadCount, error) {
	const query = `SELECT substitute_teacher_id AS teacher_id, COUNT(*) AS count
FROM substitute_assignments
WHERE created_at::date >= $1 AND created_at::date <= $2
GROUP BY substitute_teacher_id
ORDER BY substitute_teacher_id ASC`
	var counts []models.WorkloadCount
	if err := r.db.SelectContext(ctx, &counts, query, from, to); err != nil {
		return nil, fmt.Errorf("count substitute workload: %w", err)
	}
	return counts, nil
}

// Report returns assignment history joined with lecture and teacher names.
func (r *SubstituteRepository) Report(ctx context.Context, filter models.SubstituteReportFilter) ([]models.SubstituteReportRow, error) {
	conditions := []string{"l.date >= $1", "l.date <= $2"}
	args := []interface{}{filter.StartDate, filter.EndDate}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("(sa.substitute_teacher_id = $%d OR sa.original_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.TeacherID)
	}
	limit := ""
	if filter.Limit > 0 {
		limit = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	query := fmt.Sprintf(`SELECT sa.id, sa.lecture_id, sa.original_teacher_id, sa.substitute_teacher_id, sa.leave_request_id, sa.notes, sa.is_override, sa.active, sa.assigned_by, sa.created_at,
	l.subject, l.class_year, l.division, l.date AS lecture_date, l.start_time, l.end_time,
	ot.name AS original_teacher_name, st.name AS substitute_teacher_name
FROM substitute_assignments sa
JOIN lectures l ON l.id = sa.lecture_id
LEFT JOIN teachers ot ON ot.id = sa.original_teacher_id
JOIN teachers st ON st.id = sa.substitute_teacher_id
WHERE %s
ORDER BY l.date ASC, l.start_time ASC, sa.created_at ASC%s`, strings.Join(conditions, " AND "), limit)

	var rows []models.SubstituteReportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("substitute report: %w", err)
	}
	return rows, nil
}

// Assign commits an assignment in one transaction. The lecture row is locked
// first, then the substitute's teacher row, so assignments of the same
// substitute run one at a time. guard receives the locked lecture and the
// substitute's other lectures that date; its error aborts the commit
// unchanged. Prior active assignments for the lecture are superseded and
// pending coverage requests are marked fulfilled.
func (r *SubstituteRepository) Assign(ctx context.Context, assignment *models.SubstituteAssignment, guard func(locked models.Lecture, substituteDay []models.Lecture) error) (_ *models.Lecture, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assign substitute: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked models.Lecture
	lockQuery := fmt.Sprintf("SELECT %s FROM lectures WHERE id = $1 FOR UPDATE", lectureColumns)
	if err = tx.GetContext(ctx, &locked, lockQuery, assignment.LectureID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock lecture: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `SELECT 1 FROM teachers WHERE id = $1 FOR UPDATE`, assignment.SubstituteTeacherID); err != nil {
		return nil, fmt.Errorf("lock substitute teacher: %w", err)
	}
	var substituteDay []models.Lecture
	dayQuery := fmt.Sprintf(`SELECT %s FROM lectures
WHERE date = $1 AND id <> $2 AND status <> 'cancelled' AND (scheduled_teacher_id = $3 OR substitute_teacher_id = $3)`, lectureColumns)
	if err = tx.SelectContext(ctx, &substituteDay, dayQuery, locked.Date, locked.ID, assignment.SubstituteTeacherID); err != nil {
		return nil, fmt.Errorf("load substitute lectures: %w", err)
	}
	if guard != nil {
		if err = guard(locked, substituteDay); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE substitute_assignments SET active = FALSE WHERE lecture_id = $1 AND active`, locked.ID); err != nil {
		return nil, fmt.Errorf("supersede assignments: %w", err)
	}

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = now
	assignment.Active = true
	const insert = `INSERT INTO substitute_assignments (id, lecture_id, original_teacher_id, substitute_teacher_id, leave_request_id, notes, is_override, active, assigned_by, created_at)
		VALUES (:id, :lecture_id, :original_teacher_id, :substitute_teacher_id, :leave_request_id, :notes, :is_override, :active, :assigned_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, assignment); err != nil {
		return nil, fmt.Errorf("insert substitute assignment: %w", err)
	}

	const updateLecture = `UPDATE lectures SET substitute_teacher_id = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateLecture, locked.ID, assignment.SubstituteTeacherID, models.LectureStatusSubAssigned, now); err != nil {
		return nil, fmt.Errorf("mark lecture substituted: %w", err)
	}

	const fulfil = `UPDATE substitute_requests SET status = $2, updated_at = $3 WHERE lecture_id = $1 AND status = 'pending'`
	if _, err = tx.ExecContext(ctx, fulfil, locked.ID, models.SubstituteRequestFulfilled, now); err != nil {
		return nil, fmt.Errorf("fulfil substitute requests: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assign substitute: %w", err)
	}

	substitute := assignment.SubstituteTeacherID
	locked.SubstituteTeacherID = &substitute
	locked.Status = models.LectureStatusSubAssigned
	locked.UpdatedAt = now
	return &locked, nil
}

// FindPendingRequest returns the pending coverage request for a lecture.
func (r *SubstituteRepository) FindPendingRequest(ctx context.Context, lectureID string) (*models.SubstituteRequest, error) {
	const query = `SELECT id, lecture_id, requested_by, leave_request_id, notes, status, created_at, updated_at
FROM substitute_requests WHERE lecture_id = $1 AND status = 'pending' ORDER BY created_at ASC LIMIT 1`
	var req models.SubstituteRequest
	if err := r.db.GetContext(ctx, &req, query, lectureID); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListRequests returns coverage requests, optionally filtered by status.
func (r *SubstituteRepository) ListRequests(ctx context.Context, status string) ([]models.SubstituteRequest, error) {
	query := `SELECT id, lecture_id, requested_by, leave_request_id, notes, status, created_at, updated_at FROM substitute_requests`
	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	var requests []models.SubstituteRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list substitute requests: %w", err)
	}
	return requests, nil
}

// CreateRequest stores a teacher-initiated coverage request.
func (r *SubstituteRepository) CreateRequest(ctx context.Context, req *models.SubstituteRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = models.SubstituteRequestPending
	}
	const query = `INSERT INTO substitute_requests (id, lecture_id, requested_by, leave_request_id, notes, status, created_at, updated_at)
		VALUES (:id, :lecture_id, :requested_by, :leave_request_id, :notes, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create substitute request: %w", err)
	}
	return nil
}
