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

const lectureColumns = "id, subject, class_year, division, room, date, day_of_week, start_time, end_time, scheduled_teacher_id, substitute_teacher_id, status, series_id, created_at, updated_at"

// LectureRepository persists timetable lectures.
type LectureRepository struct {
	db *sqlx.DB
}

// NewLectureRepository creates a new lecture repository.
func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

// List returns lectures with optional filtering and pagination.
func (r *LectureRepository) List(ctx context.Context, filter models.LectureFilter) ([]models.Lecture, int, error) {
	base := "FROM lectures WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.DateFrom != "" {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("(scheduled_teacher_id = $%d OR substitute_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassYear != "" {
		conditions = append(conditions, fmt.Sprintf("class_year = $%d", len(args)+1))
		args = append(args, filter.ClassYear)
	}
	if filter.Division != "" {
		conditions = append(conditions, fmt.Sprintf("division = $%d", len(args)+1))
		args = append(args, filter.Division)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("room = $%d", len(args)+1))
		args = append(args, filter.Room)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY date %s, start_time %s, id ASC LIMIT %d OFFSET %d", lectureColumns, base, order, order, size, offset)
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lectures: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lectures: %w", err)
	}

	return lectures, total, nil
}

// FindByID loads a lecture by id.
func (r *LectureRepository) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	query := fmt.Sprintf("SELECT %s FROM lectures WHERE id = $1", lectureColumns)
	var lecture models.Lecture
	if err := r.db.GetContext(ctx, &lecture, query, id); err != nil {
		return nil, err
	}
	return &lecture, nil
}

// ListByDate returns every lecture held on the date, cancelled ones included.
func (r *LectureRepository) ListByDate(ctx context.Context, date string) ([]models.Lecture, error) {
	query := fmt.Sprintf("SELECT %s FROM lectures WHERE date = $1 ORDER BY start_time ASC, id ASC", lectureColumns)
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, date); err != nil {
		return nil, fmt.Errorf("list lectures by date: %w", err)
	}
	return lectures, nil
}

// ListByDates returns lectures held on any of the given dates.
func (r *LectureRepository) ListByDates(ctx context.Context, dates []string) ([]models.Lecture, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM lectures WHERE date = ANY($1) ORDER BY date ASC, start_time ASC, id ASC", lectureColumns)
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, pqStringArray(dates)); err != nil {
		return nil, fmt.Errorf("list lectures by dates: %w", err)
	}
	return lectures, nil
}

// ListWeek returns non-cancelled lectures in [from, to] for a class or teacher.
func (r *LectureRepository) ListWeek(ctx context.Context, from, to, teacherID, classYear, division string) ([]models.Lecture, error) {
	conditions := []string{"date >= $1", "date <= $2", "status <> 'cancelled'"}
	args := []interface{}{from, to}
	if teacherID != "" {
		conditions = append(conditions, fmt.Sprintf("(scheduled_teacher_id = $%d OR substitute_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, teacherID)
	}
	if classYear != "" {
		conditions = append(conditions, fmt.Sprintf("class_year = $%d", len(args)+1))
		args = append(args, classYear)
	}
	if division != "" {
		conditions = append(conditions, fmt.Sprintf("division = $%d", len(args)+1))
		args = append(args, division)
	}
	query := fmt.Sprintf("SELECT %s FROM lectures WHERE %s ORDER BY date ASC, start_time ASC, id ASC", lectureColumns, strings.Join(conditions, " AND "))
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, args...); err != nil {
		return nil, fmt.Errorf("list week lectures: %w", err)
	}
	return lectures, nil
}

// Create stores a new lecture record.
func (r *LectureRepository) Create(ctx context.Context, lecture *models.Lecture) error {
	return r.insert(ctx, r.db, lecture)
}

// BulkCreate inserts a recurring batch within one transaction.
func (r *LectureRepository) BulkCreate(ctx context.Context, lectures []models.Lecture) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create lectures: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range lectures {
		if err = r.insert(ctx, tx, &lectures[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create lectures: %w", err)
	}
	return nil
}

func (r *LectureRepository) insert(ctx context.Context, exec sqlx.ExtContext, lecture *models.Lecture) error {
	if lecture.ID == "" {
		lecture.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lecture.CreatedAt.IsZero() {
		lecture.CreatedAt = now
	}
	lecture.UpdatedAt = now
	if lecture.Status == "" {
		lecture.Status = models.LectureStatusScheduled
	}

	const query = `INSERT INTO lectures (id, subject, class_year, division, room, date, day_of_week, start_time, end_time, scheduled_teacher_id, substitute_teacher_id, status, series_id, created_at, updated_at)
		VALUES (:id, :subject, :class_year, :division, :room, :date, :day_of_week, :start_time, :end_time, :scheduled_teacher_id, :substitute_teacher_id, :status, :series_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, lecture); err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

// Update persists edits and reschedules.
func (r *LectureRepository) Update(ctx context.Context, lecture *models.Lecture) error {
	lecture.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lectures SET subject = :subject, class_year = :class_year, division = :division, room = :room, date = :date,
		day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, scheduled_teacher_id = :scheduled_teacher_id,
		updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lecture); err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	return nil
}

// UpdateStatus sets the lifecycle status of a lecture.
func (r *LectureRepository) UpdateStatus(ctx context.Context, id string, status models.LectureStatus) error {
	const query = `UPDATE lectures SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update lecture status: %w", err)
	}
	return nil
}
