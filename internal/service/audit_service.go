package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/export"
)

type auditLogRepository interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
	ListForExport(ctx context.Context, filter models.AuditLogFilter, limit int) ([]models.AuditLog, error)
}

// AuditService reads the audit trail.
type AuditService struct {
	repo     auditLogRepository
	exporter *ExportService
	jobs     exportSubmitter
	logger   *zap.Logger
}

// NewAuditService constructs an AuditService. jobs may be nil, in which case
// every export renders inline.
func NewAuditService(repo auditLogRepository, exporter *ExportService, jobs exportSubmitter, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService(ExportConfig{}, logger, nil, nil)
	}
	return &AuditService{repo: repo, exporter: exporter, jobs: jobs, logger: logger}
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	if err := checkAuditRange(filter); err != nil {
		return nil, nil, err
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Export renders matching entries, capped at the export row limit.
func (s *AuditService) Export(ctx context.Context, filter models.AuditLogFilter, format export.Format) (*ExportDocument, error) {
	if err := checkAuditRange(filter); err != nil {
		return nil, err
	}
	logs, err := s.load(ctx, filter, s.exporter.MaxRows())
	if err != nil {
		return nil, err
	}
	return s.render(logs, format)
}

// RequestExport renders inline when the matching entries fit the export row
// limit and queues the export otherwise, or whenever async is set.
func (s *AuditService) RequestExport(ctx context.Context, filter models.AuditLogFilter, format export.Format, async bool, actor *models.JWTClaims) (*ExportDocument, *models.ExportJob, error) {
	if s.jobs == nil {
		doc, err := s.Export(ctx, filter, format)
		return doc, nil, err
	}
	if err := checkAuditRange(filter); err != nil {
		return nil, nil, err
	}
	if !async {
		logs, err := s.load(ctx, filter, s.exporter.MaxRows()+1)
		if err != nil {
			return nil, nil, err
		}
		if len(logs) <= s.exporter.MaxRows() {
			doc, err := s.render(logs, format)
			return doc, nil, err
		}
	}
	job, err := s.jobs.Submit(ctx, models.ExportKindAuditLog, models.ExportJobParams{
		Format:   string(format),
		UserID:   filter.UserID,
		Action:   filter.Action,
		Resource: filter.Resource,
		From:     filter.From,
		To:       filter.To,
	}, actor)
	if err != nil {
		return nil, nil, err
	}
	return nil, job, nil
}

// RenderQueued is the export worker's renderer for audit logs.
func (s *AuditService) RenderQueued(ctx context.Context, params models.ExportJobParams) (*ExportDocument, error) {
	format, err := export.ParseFormat(params.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	logs, err := s.load(ctx, params.AuditFilter(), s.exporter.AsyncMaxRows())
	if err != nil {
		return nil, err
	}
	return s.render(logs, format)
}

func (s *AuditService) load(ctx context.Context, filter models.AuditLogFilter, limit int) ([]models.AuditLog, error) {
	logs, err := s.repo.ListForExport(ctx, filter, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit logs")
	}
	return logs, nil
}

func (s *AuditService) render(logs []models.AuditLog, format export.Format) (*ExportDocument, error) {
	data := export.Dataset{
		Headers: []string{"Time", "User", "Action", "Resource", "Resource ID", "IP"},
		Rows:    make([]map[string]string, 0, len(logs)),
	}
	for _, l := range logs {
		data.Rows = append(data.Rows, map[string]string{
			"Time":        formatTimestamp(l.CreatedAt),
			"User":        deref(l.UserID),
			"Action":      l.Action,
			"Resource":    l.Resource,
			"Resource ID": deref(l.ResourceID),
			"IP":          l.IPAddress,
		})
	}
	doc, err := s.exporter.Render(format, "audit_log", "Audit Log", data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit log")
	}
	return doc, nil
}

func checkAuditRange(filter models.AuditLogFilter) error {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return nil
}
