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

const teacherColumns = "id, employee_code, name, email, phone, department, designation, is_active, is_hod, is_acting_hod, created_at, updated_at"

var teacherSorts = map[string]string{
	"name":       "name",
	"email":      "email",
	"department": "department",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// TeacherRepository reads and writes the faculty directory.
type TeacherRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db, now: time.Now}
}

// List pages through the directory. Department matches ignore case; search
// looks at name, email and employee code.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var p predicates
	if filter.Active != nil {
		p.add("is_active = ?", *filter.Active)
	}
	if dept := strings.TrimSpace(filter.Department); dept != "" {
		p.add("LOWER(department) = LOWER(?)", dept)
	}
	if strings.TrimSpace(filter.Search) != "" {
		p.add("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(COALESCE(employee_code, '')) LIKE ?)", likeTerm(filter.Search))
	}

	limit, offset := window(filter.Page, filter.PageSize)
	order := orderClause(teacherSorts, filter.SortBy, "name", filter.SortOrder)
	query := fmt.Sprintf("SELECT %s FROM teachers%s ORDER BY %s, id ASC LIMIT %d OFFSET %d", teacherColumns, p.where(), order, limit, offset)

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, p.args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM teachers"+p.where(), p.args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// ListAll loads every teacher, active or not, for in-memory matching.
func (r *TeacherRepository) ListAll(ctx context.Context) ([]models.Teacher, error) {
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, "SELECT "+teacherColumns+" FROM teachers ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("list all teachers: %w", err)
	}
	return teachers, nil
}

// FindByID returns sql.ErrNoRows for unknown ids.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, "SELECT "+teacherColumns+" FROM teachers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	found, err := taken(ctx, r.db, "teachers", "LOWER(email) = LOWER(?)", email, excludeID)
	if err != nil {
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return found, nil
}

// ExistsByEmployeeCode treats a blank code as never taken.
func (r *TeacherRepository) ExistsByEmployeeCode(ctx context.Context, code, excludeID string) (bool, error) {
	if strings.TrimSpace(code) == "" {
		return false, nil
	}
	found, err := taken(ctx, r.db, "teachers", "employee_code = ?", code, excludeID)
	if err != nil {
		return false, fmt.Errorf("check teacher employee code: %w", err)
	}
	return found, nil
}

// Create assigns an id when missing and stamps both timestamps.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	teacher.CreatedAt = r.now().UTC()
	teacher.UpdatedAt = teacher.CreatedAt

	const query = `INSERT INTO teachers (id, employee_code, name, email, phone, department, designation, is_active, is_hod, is_acting_hod, created_at, updated_at)
VALUES (:id, :employee_code, :name, :email, :phone, :department, :designation, :is_active, :is_hod, :is_acting_hod, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher %s: %w", teacher.Email, err)
	}
	return nil
}

func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = r.now().UTC()
	const query = `UPDATE teachers SET
    employee_code = :employee_code, name = :name, email = :email, phone = :phone,
    department = :department, designation = :designation, is_active = :is_active,
    is_hod = :is_hod, is_acting_hod = :is_acting_hod, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher %s: %w", teacher.ID, err)
	}
	return nil
}

// Deactivate keeps the row so historical lectures and assignments still resolve.
func (r *TeacherRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE teachers SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, r.now().UTC()); err != nil {
		return fmt.Errorf("deactivate teacher %s: %w", id, err)
	}
	return nil
}
