package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

type exportJobService interface {
	Status(ctx context.Context, id string, actor *models.JWTClaims) (*models.ExportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportJobHandler reports on queued exports and serves their files.
type ExportJobHandler struct {
	service exportJobService
}

// NewExportJobHandler constructs ExportJobHandler.
func NewExportJobHandler(svc exportJobService) *ExportJobHandler {
	return &ExportJobHandler{service: svc}
}

// Status godoc
// @Summary Export job status
// @Description result_url is set once the job has finished.
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/jobs/{id} [get]
func (h *ExportJobHandler) Status(c *gin.Context) {
	job, err := h.service.Status(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export
// @Description The signed token authorizes the download; no bearer token is needed.
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportJobHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Cache-Control":       "private, no-store",
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
		"Expires":             download.ExpiresAt.UTC().Format(time.RFC1123),
	})
}
