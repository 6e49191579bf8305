package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/dto"
	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type leaveRepository interface {
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	ListApprovedOn(ctx context.Context, date string) ([]models.LeaveRequest, error)
	HasOverlap(ctx context.Context, teacherID, start, end, excludeID string) (bool, error)
	Create(ctx context.Context, leave *models.LeaveRequest) error
	UpdateDecision(ctx context.Context, leave *models.LeaveRequest) error
}

// LeaveService handles leave requests and their approval.
type LeaveService struct {
	repo      leaveRepository
	teachers  teacherReader
	audit     auditWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(repo leaveRepository, teachers teacherReader, audit auditWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerDomainValidators(validate)
	return &LeaveService{
		repo:      repo,
		teachers:  teachers,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns leave requests. Teachers only see their own.
func (s *LeaveService) List(ctx context.Context, filter models.LeaveFilter, actor *models.JWTClaims) ([]models.LeaveRequest, *models.Pagination, error) {
	if actor != nil && actor.Role == models.RoleTeacher {
		filter.TeacherID = actor.TeacherID
	}
	leaves, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return leaves, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a leave request by id.
func (s *LeaveService) Get(ctx context.Context, id string) (*models.LeaveRequest, error) {
	leave, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	return leave, nil
}

// Create files a pending leave request. Teachers may only file for themselves;
// an empty teacher id defaults to the caller's linked teacher.
func (s *LeaveService) Create(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	teacherID := strings.TrimSpace(req.TeacherID)
	if actor != nil {
		if teacherID == "" {
			teacherID = actor.TeacherID
		}
		if actor.Role == models.RoleTeacher && teacherID != actor.TeacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only request their own leave")
		}
	}
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}
	if req.EndDate < req.StartDate {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	if s.teachers != nil {
		if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
	}

	overlap, err := s.repo.HasOverlap(ctx, teacherID, req.StartDate, req.EndDate, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check leave overlap")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave overlaps an existing pending or approved request")
	}

	leave := &models.LeaveRequest{
		TeacherID: teacherID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		LeaveType: req.LeaveType,
		Reason:    strings.TrimSpace(req.Reason),
		Status:    models.LeaveStatusPending,
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	s.cache.Invalidate(ctx, cacheNamespaceDashboard)
	return leave, nil
}

// Decide approves or denies a pending request. Approval puts the teacher's
// lectures in range into the needing-coverage set.
func (s *LeaveService) Decide(ctx context.Context, id string, req dto.LeaveDecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if actor == nil || !actor.Role.CanOverrideDepartment() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HOD or admin may decide leave requests")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave decision")
	}
	leave, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if leave.Status != models.LeaveStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request already decided")
	}
	before := *leave

	decidedAt := s.now().UTC()
	leave.Status = models.LeaveStatus(req.Status)
	leave.DecidedBy = &actor.UserID
	leave.DecidedAt = &decidedAt
	leave.DecisionNote = normalizeOptional(req.Note)
	if err := s.repo.UpdateDecision(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record leave decision")
	}

	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionLeaveDecision,
		Resource:   "leave_request",
		ResourceID: &leave.ID,
		OldValues:  marshalAudit(&before),
		NewValues:  marshalAudit(leave),
	})
	s.cache.Invalidate(ctx, cacheNamespaceCoverage, cacheNamespaceDashboard)
	return leave, nil
}

// ApprovedOn returns the ids of teachers on approved leave for the date.
func (s *LeaveService) ApprovedOn(ctx context.Context, date string) (map[string]struct{}, error) {
	return approvedTeachersOn(ctx, s.repo, date)
}

type approvedLeaveReader interface {
	ListApprovedOn(ctx context.Context, date string) ([]models.LeaveRequest, error)
}

func approvedTeachersOn(ctx context.Context, repo approvedLeaveReader, date string) (map[string]struct{}, error) {
	leaves, err := repo.ListApprovedOn(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved leave")
	}
	onLeave := make(map[string]struct{}, len(leaves))
	for _, l := range leaves {
		if l.Covers(date) {
			onLeave[l.TeacherID] = struct{}{}
		}
	}
	return onLeave, nil
}
