package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerDomainValidators(validate)
	return &AnnouncementService{repo: repo, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// AnnouncementRequest is the create and update payload.
type AnnouncementRequest struct {
	Title            string     `json:"title" validate:"required,max=255"`
	Body             string     `json:"body" validate:"required"`
	Audience         string     `json:"audience" validate:"required,audience"`
	TargetDepartment *string    `json:"target_department" validate:"omitempty,max=100"`
	Priority         string     `json:"priority" validate:"omitempty,priority"`
	IsPinned         bool       `json:"is_pinned"`
	PublishedAt      *time.Time `json:"published_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
}

// List returns announcements visible to the caller, pinned first.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return rows, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get announcement")
	}
	return ann, nil
}

// Create publishes a new announcement authored by the actor.
func (s *AnnouncementService) Create(ctx context.Context, req AnnouncementRequest, actor *models.JWTClaims) (*models.Announcement, error) {
	announcement := &models.Announcement{}
	if err := s.apply(announcement, req); err != nil {
		return nil, err
	}
	if actor != nil {
		announcement.CreatedBy = actor.UserID
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.record(ctx, actor, announcement.ID, nil, announcement)
	return announcement, nil
}

// Update replaces an announcement's content and targeting.
func (s *AnnouncementService) Update(ctx context.Context, id string, req AnnouncementRequest, actor *models.JWTClaims) (*models.Announcement, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *existing
	if err := s.apply(existing, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	s.record(ctx, actor, id, &before, existing)
	return existing, nil
}

// Delete removes an announcement by id.
func (s *AnnouncementService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	s.record(ctx, actor, id, existing, nil)
	return nil
}

func (s *AnnouncementService) apply(target *models.Announcement, req AnnouncementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	audience := models.AnnouncementAudience(strings.ToUpper(req.Audience))
	department := normalizeOptional(req.TargetDepartment)
	if audience == models.AnnouncementAudienceDepartment && department == nil {
		return appErrors.Clone(appErrors.ErrValidation, "target_department required for DEPARTMENT audience")
	}
	if audience != models.AnnouncementAudienceDepartment {
		department = nil
	}
	publishedAt := s.now().UTC()
	if req.PublishedAt != nil {
		publishedAt = req.PublishedAt.UTC()
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(publishedAt) {
		return appErrors.Clone(appErrors.ErrValidation, "expires_at must be after published_at")
	}
	priority := models.AnnouncementPriority(strings.ToUpper(req.Priority))
	if priority == "" {
		priority = models.AnnouncementPriorityNormal
	}

	target.Title = strings.TrimSpace(req.Title)
	target.Body = req.Body
	target.Audience = audience
	target.TargetDepartment = department
	target.Priority = priority
	target.IsPinned = req.IsPinned
	target.PublishedAt = publishedAt
	target.ExpiresAt = req.ExpiresAt
	return nil
}

func (s *AnnouncementService) record(ctx context.Context, actor *models.JWTClaims, id string, before, after *models.Announcement) {
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionAnnouncement,
		Resource:   "announcement",
		ResourceID: &id,
		OldValues:  marshalAudit(before),
		NewValues:  marshalAudit(after),
	})
}
