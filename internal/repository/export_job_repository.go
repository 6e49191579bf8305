package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/college-admin-api/internal/models"
)

const exportJobColumns = "id, kind, params, status, row_count, file_name, result_url, error_message, requested_by, created_at, finished_at"

// ExportJobRepository persists background export jobs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs an ExportJobRepository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a job, filling id, status and created_at when empty.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportJobQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (id, kind, params, status, row_count, requested_by, created_at)
VALUES (:id, :kind, :params, :status, :row_count, :requested_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID returns sql.ErrNoRows (wrapped) when the job is unknown.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM export_jobs WHERE id = $1", exportJobColumns)
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// ExportJobUpdate lists the mutable columns; nil fields are left alone.
type ExportJobUpdate struct {
	Status       *models.ExportJobStatus
	RowCount     *int
	FileName     *string
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update applies the non-nil fields of params.
func (r *ExportJobRepository) Update(ctx context.Context, id string, params ExportJobUpdate) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.RowCount != nil {
		add("row_count", *params.RowCount)
	}
	if params.FileName != nil {
		add("file_name", *params.FileName)
	}
	if params.ResultURL != nil {
		add("result_url", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// ListUnfinished returns queued or running jobs, oldest first, for replay after a restart.
func (r *ExportJobRepository) ListUnfinished(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM export_jobs WHERE status IN ('QUEUED', 'RUNNING') ORDER BY created_at ASC LIMIT $1", exportJobColumns)
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list unfinished export jobs: %w", err)
	}
	return jobs, nil
}
