package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/export"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error)
	RequestExport(ctx context.Context, filter models.AuditLogFilter, format export.Format, async bool, actor *models.JWTClaims) (*service.ExportDocument, *models.ExportJob, error)
}

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(svc auditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit logs
// @Tags Audit
// @Produce json
// @Param user_id query string false "Actor"
// @Param action query string false "Action"
// @Param resource query string false "Resource"
// @Param from query string false "From (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "To (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter, err := auditFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	logs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Export godoc
// @Summary Export audit logs
// @Tags Audit
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param from query string false "From (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "To (RFC3339 or YYYY-MM-DD)"
// @Param async query bool false "queue the export and return a job"
// @Success 200 {file} file
// @Success 202 {object} response.Envelope
// @Router /audit-logs/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	filter, err := auditFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	async, ok := optionalBool(c, "async")
	if !ok {
		return
	}
	doc, job, err := h.service.RequestExport(c.Request.Context(), filter, format, async != nil && *async, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendExport(c, doc, job)
}

func auditFilter(c *gin.Context) (models.AuditLogFilter, error) {
	filter := models.AuditLogFilter{
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Action:   strings.TrimSpace(c.Query("action")),
		Resource: strings.TrimSpace(c.Query("resource")),
	}
	filter.Page, filter.PageSize = pageParams(c)
	for key, target := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		t, err := parseTimeParam(raw)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, key+" must be RFC3339 or YYYY-MM-DD")
		}
		*target = &t
	}
	return filter, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
