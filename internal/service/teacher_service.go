package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	ExistsByEmployeeCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	Email        string  `json:"email" validate:"required,email"`
	Department   string  `json:"department" validate:"required,max=100"`
	EmployeeCode *string `json:"employee_code" validate:"omitempty,max=50"`
	Phone        *string `json:"phone" validate:"omitempty,max=50"`
	Designation  *string `json:"designation" validate:"omitempty,max=100"`
	IsHOD        bool    `json:"is_hod"`
	IsActingHOD  bool    `json:"is_acting_hod"`
}

// UpdateTeacherRequest represents payload for updating teachers.
type UpdateTeacherRequest struct {
	CreateTeacherRequest
	Active *bool `json:"is_active"`
}

// TeacherService orchestrates faculty directory operations.
type TeacherService struct {
	repo      teacherRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher record.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest, actor *models.JWTClaims) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if err := s.ensureUniqueFields(ctx, req.Email, req.EmployeeCode, ""); err != nil {
		return nil, err
	}

	teacher := &models.Teacher{IsActive: true}
	applyTeacherFields(teacher, req)

	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.recordChange(ctx, actor, models.AuditActionTeacherCreate, teacher.ID, nil, teacher)
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest, actor *models.JWTClaims) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueFields(ctx, req.Email, req.EmployeeCode, id); err != nil {
		return nil, err
	}

	before := *teacher
	applyTeacherFields(teacher, req.CreateTeacherRequest)
	if req.Active != nil {
		teacher.IsActive = *req.Active
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	s.recordChange(ctx, actor, models.AuditActionTeacherUpdate, id, &before, teacher)
	return teacher, nil
}

// Deactivate marks a teacher inactive. Inactive teachers are never offered as substitutes.
func (s *TeacherService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	after := *teacher
	after.IsActive = false
	s.recordChange(ctx, actor, models.AuditActionTeacherUpdate, id, teacher, &after)
	return nil
}

func applyTeacherFields(teacher *models.Teacher, req CreateTeacherRequest) {
	teacher.Name = strings.TrimSpace(req.Name)
	teacher.Email = strings.ToLower(strings.TrimSpace(req.Email))
	teacher.Department = strings.TrimSpace(req.Department)
	teacher.EmployeeCode = normalizeOptional(req.EmployeeCode)
	teacher.Phone = normalizeOptional(req.Phone)
	teacher.Designation = normalizeOptional(req.Designation)
	teacher.IsHOD = req.IsHOD
	teacher.IsActingHOD = req.IsActingHOD
}

func (s *TeacherService) ensureUniqueFields(ctx context.Context, email string, code *string, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	if trimmed := normalizeOptional(code); trimmed != nil {
		exists, err = s.repo.ExistsByEmployeeCode(ctx, *trimmed, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check employee code uniqueness")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "employee code already used")
		}
	}
	return nil
}

func (s *TeacherService) recordChange(ctx context.Context, actor *models.JWTClaims, action, id string, before, after *models.Teacher) {
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		Resource:   "teacher",
		ResourceID: &id,
		OldValues:  marshalAudit(before),
		NewValues:  marshalAudit(after),
	})
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// writeAudit persists an audit entry; failures are logged and never fail the caller.
func writeAudit(ctx context.Context, audit auditWriter, logger *zap.Logger, entry *models.AuditLog) {
	if audit == nil {
		return
	}
	if entry.IPAddress == "" {
		entry.IPAddress = "system"
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func marshalAudit[T any](v *T) []byte {
	if v == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}
