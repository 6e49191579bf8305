package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusdesk/college-admin-api/internal/models"
)

const announcementColumns = "id, title, body, audience, target_department, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at"

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// List returns published, unexpired announcements visible to the filter's role.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	where := []string{"published_at <= NOW()", "(expires_at IS NULL OR expires_at > NOW())"}
	var args []interface{}

	audiences := visibleAudiences(filter.Role)
	if audiences != nil {
		where = append(where, fmt.Sprintf("audience = ANY($%d)", len(args)+1))
		args = append(args, pqStringArray(audiences))
		where = append(where, fmt.Sprintf("(audience <> 'DEPARTMENT' OR LOWER(target_department) = LOWER($%d))", len(args)+1))
		args = append(args, strings.TrimSpace(filter.Department))
	} else if filter.Department != "" {
		where = append(where, fmt.Sprintf("(audience <> 'DEPARTMENT' OR LOWER(target_department) = LOWER($%d))", len(args)+1))
		args = append(args, strings.TrimSpace(filter.Department))
	}
	if filter.PinnedOnly {
		where = append(where, "is_pinned")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s
FROM announcements WHERE %s
ORDER BY is_pinned DESC, CASE priority WHEN 'HIGH' THEN 3 WHEN 'NORMAL' THEN 2 ELSE 1 END DESC, published_at DESC
LIMIT %d OFFSET %d`, announcementColumns, whereClause, size, offset)
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM announcements WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// visibleAudiences returns nil for roles that see every audience.
func visibleAudiences(role models.UserRole) []string {
	switch role {
	case models.RoleAdmin, models.RoleSuperAdmin, "":
		return nil
	case models.RoleStudent:
		return []string{string(models.AnnouncementAudienceAll), string(models.AnnouncementAudienceStudents), string(models.AnnouncementAudienceDepartment)}
	default:
		return []string{string(models.AnnouncementAudienceAll), string(models.AnnouncementAudienceFaculty), string(models.AnnouncementAudienceDepartment)}
	}
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := fmt.Sprintf("SELECT %s FROM announcements WHERE id = $1", announcementColumns)
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	announcement.UpdatedAt = now
	query := `INSERT INTO announcements (id, title, body, audience, target_department, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at)
VALUES (:id, :title, :body, :audience, :target_department, :priority, :is_pinned, :published_at, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update modifies an existing announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	query := `UPDATE announcements SET title = :title, body = :body, audience = :audience, target_department = :target_department,
priority = :priority, is_pinned = :is_pinned, published_at = :published_at, expires_at = :expires_at, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}

// pqStringArray helper ensures we pass string arrays consistently.
func pqStringArray(values []string) interface{} {
	return pq.Array(values)
}
