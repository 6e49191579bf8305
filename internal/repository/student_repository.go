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

const studentColumns = "id, roll_number, name, email, phone, department, class_year, division, is_active, created_at, updated_at"

var studentSorts = map[string]string{
	"name":        "name",
	"roll_number": "roll_number",
	"class_year":  "class_year",
	"created_at":  "created_at",
}

// StudentRepository stores enrolled students grouped by class year and division.
type StudentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db, now: time.Now}
}

// List returns one page of students ordered by roll number unless asked otherwise.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var p predicates
	if dept := strings.TrimSpace(filter.Department); dept != "" {
		p.add("LOWER(department) = LOWER(?)", dept)
	}
	if filter.ClassYear != "" {
		p.add("class_year = ?", filter.ClassYear)
	}
	if filter.Division != "" {
		p.add("division = ?", filter.Division)
	}
	if filter.Active != nil {
		p.add("is_active = ?", *filter.Active)
	}
	if strings.TrimSpace(filter.Search) != "" {
		p.add("(LOWER(name) LIKE ? OR LOWER(roll_number) LIKE ?)", likeTerm(filter.Search))
	}

	limit, offset := window(filter.Page, filter.PageSize)
	order := orderClause(studentSorts, filter.SortBy, "roll_number", filter.SortOrder)
	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY %s LIMIT %d OFFSET %d", studentColumns, p.where(), order, limit, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, p.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"+p.where(), p.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) ExistsByRollNumber(ctx context.Context, rollNumber, excludeID string) (bool, error) {
	found, err := taken(ctx, r.db, "students", "roll_number = ?", rollNumber, excludeID)
	if err != nil {
		return false, fmt.Errorf("check roll number %s: %w", rollNumber, err)
	}
	return found, nil
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = r.now().UTC()
	student.UpdatedAt = student.CreatedAt

	const query = `INSERT INTO students (id, roll_number, name, email, phone, department, class_year, division, is_active, created_at, updated_at)
VALUES (:id, :roll_number, :name, :email, :phone, :department, :class_year, :division, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student %s: %w", student.RollNumber, err)
	}
	return nil
}

func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = r.now().UTC()
	const query = `UPDATE students SET
    roll_number = :roll_number, name = :name, email = :email, phone = :phone,
    department = :department, class_year = :class_year, division = :division,
    is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student %s: %w", student.ID, err)
	}
	return nil
}

// Deactivate is a soft delete.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE students SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, r.now().UTC()); err != nil {
		return fmt.Errorf("deactivate student %s: %w", id, err)
	}
	return nil
}
