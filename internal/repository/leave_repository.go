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

const leaveColumns = "id, teacher_id, start_date, end_date, leave_type, reason, status, decided_by, decided_at, decision_note, created_at, updated_at"

// LeaveRepository persists teacher leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// List returns leave requests filtered by teacher, status and date overlap.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	base := "FROM leave_requests WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date DESC, created_at DESC LIMIT %d OFFSET %d", leaveColumns, base, size, offset)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return leaves, total, nil
}

// FindByID loads a leave request.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM leave_requests WHERE id = $1", leaveColumns)
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		return nil, err
	}
	return &leave, nil
}

// ListApprovedOn returns approved leave covering the date.
func (r *LeaveRepository) ListApprovedOn(ctx context.Context, date string) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM leave_requests WHERE status = 'approved' AND start_date <= $1 AND end_date >= $1", leaveColumns)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, date); err != nil {
		return nil, fmt.Errorf("list approved leave: %w", err)
	}
	return leaves, nil
}

// HasOverlap reports whether the teacher already has pending or approved
// leave intersecting [start, end].
func (r *LeaveRepository) HasOverlap(ctx context.Context, teacherID, start, end, excludeID string) (bool, error) {
	query := "SELECT 1 FROM leave_requests WHERE teacher_id = $1 AND status IN ('pending', 'approved') AND start_date <= $3 AND end_date >= $2"
	args := []interface{}{teacherID, start, end}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check leave overlap: %w", err)
	}
	return true, nil
}

// Create inserts a new leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = now
	if leave.Status == "" {
		leave.Status = models.LeaveStatusPending
	}

	const query = `INSERT INTO leave_requests (id, teacher_id, start_date, end_date, leave_type, reason, status, decided_by, decided_at, decision_note, created_at, updated_at)
		VALUES (:id, :teacher_id, :start_date, :end_date, :leave_type, :reason, :status, :decided_by, :decided_at, :decision_note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// UpdateDecision records an approval or denial.
func (r *LeaveRepository) UpdateDecision(ctx context.Context, leave *models.LeaveRequest) error {
	leave.UpdatedAt = time.Now().UTC()
	const query = `UPDATE leave_requests SET status = :status, decided_by = :decided_by, decided_at = :decided_at, decision_note = :decision_note, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("update leave decision: %w", err)
	}
	return nil
}
