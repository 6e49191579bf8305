package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByRollNumber(ctx context.Context, rollNumber string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	RollNumber string  `json:"roll_number" validate:"required,max=50"`
	Name       string  `json:"name" validate:"required,max=255"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
	Department string  `json:"department" validate:"required,max=100"`
	ClassYear  string  `json:"class_year" validate:"required,max=20"`
	Division   string  `json:"division" validate:"required,max=10"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	CreateStudentRequest
	Active *bool `json:"is_active"`
}

// StudentService handles student directory use-cases.
type StudentService struct {
	repo      studentRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest, actor *models.JWTClaims) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureUniqueRoll(ctx, req.RollNumber, ""); err != nil {
		return nil, err
	}

	student := &models.Student{IsActive: true}
	applyStudentFields(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionStudentCreate,
		Resource:   "student",
		ResourceID: &student.ID,
		NewValues:  marshalAudit(student),
	})
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest, actor *models.JWTClaims) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueRoll(ctx, req.RollNumber, id); err != nil {
		return nil, err
	}

	before := *student
	applyStudentFields(student, req.CreateStudentRequest)
	if req.Active != nil {
		student.IsActive = *req.Active
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionStudentUpdate,
		Resource:   "student",
		ResourceID: &id,
		OldValues:  marshalAudit(&before),
		NewValues:  marshalAudit(student),
	})
	return student, nil
}

// Deactivate marks student inactive.
func (s *StudentService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionStudentUpdate,
		Resource:   "student",
		ResourceID: &id,
		NewValues:  []byte(`{"is_active":false}`),
	})
	return nil
}

func (s *StudentService) ensureUniqueRoll(ctx context.Context, roll, excludeID string) error {
	exists, err := s.repo.ExistsByRollNumber(ctx, strings.TrimSpace(roll), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate roll number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "roll number already used")
	}
	return nil
}

func applyStudentFields(student *models.Student, req CreateStudentRequest) {
	student.RollNumber = strings.TrimSpace(req.RollNumber)
	student.Name = strings.TrimSpace(req.Name)
	student.Email = normalizeOptional(req.Email)
	student.Phone = normalizeOptional(req.Phone)
	student.Department = strings.TrimSpace(req.Department)
	student.ClassYear = strings.TrimSpace(req.ClassYear)
	student.Division = strings.ToUpper(strings.TrimSpace(req.Division))
}
