package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/dto"
	"github.com/campusdesk/college-admin-api/internal/middleware"
	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/export"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

type substituteService interface {
	NeedingCoverage(ctx context.Context, filter models.CoverageFilter) ([]models.CoverageNeed, bool, error)
	Available(ctx context.Context, lectureID string, ignoreDepartment bool, actor *models.JWTClaims) (*dto.AvailableTeachersResponse, error)
	Assign(ctx context.Context, req dto.AssignSubstituteRequest, actor *models.JWTClaims) (*dto.AssignSubstituteResponse, error)
	Request(ctx context.Context, payload dto.SubstituteRequestPayload, actor *models.JWTClaims) (*models.SubstituteRequest, error)
	ListRequests(ctx context.Context, status string) ([]models.SubstituteRequest, error)
	Report(ctx context.Context, filter models.SubstituteReportFilter) ([]models.SubstituteReportRow, error)
	RequestReportExport(ctx context.Context, filter models.SubstituteReportFilter, format export.Format, async bool, actor *models.JWTClaims) (*service.ExportDocument, *models.ExportJob, error)
	Workload(ctx context.Context, teacherID string) (*dto.WorkloadResponse, error)
}

// SubstituteHandler exposes the substitute matching endpoints under /leaves.
type SubstituteHandler struct {
	service substituteService
}

// NewSubstituteHandler constructs SubstituteHandler.
func NewSubstituteHandler(svc substituteService) *SubstituteHandler {
	return &SubstituteHandler{service: svc}
}

// NeedingCoverage godoc
// @Summary Lectures needing a substitute
// @Description Upcoming lectures whose teacher is on approved leave and that have no substitute yet.
// @Tags Substitution
// @Produce json
// @Param from_date query string false "From date (YYYY-MM-DD), never earlier than today"
// @Param to_date query string false "To date (YYYY-MM-DD)"
// @Param department query string false "Department of the scheduled teacher"
// @Success 200 {object} response.Envelope
// @Router /leaves/lectures/needingsubstitutes [get]
func (h *SubstituteHandler) NeedingCoverage(c *gin.Context) {
	filter := models.CoverageFilter{
		FromDate:   strings.TrimSpace(c.Query("from_date")),
		ToDate:     strings.TrimSpace(c.Query("to_date")),
		Department: strings.TrimSpace(c.Query("department")),
	}
	needs, cacheHit, err := h.service.NeedingCoverage(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, needs, nil, middleware.ExtractMeta(c))
}

// Available godoc
// @Summary Available substitutes for a lecture
// @Description Eligible teachers ranked by this month's substitution count. ignore_department is honoured for HOD and admin roles when department override is enabled.
// @Tags Substitution
// @Produce json
// @Param lecture_id query string true "Lecture ID"
// @Param ignore_department query bool false "Lift the same-department filter"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaves/teachers/available [get]
func (h *SubstituteHandler) Available(c *gin.Context) {
	lectureID := strings.TrimSpace(c.Query("lecture_id"))
	if lectureID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lecture_id is required"))
		return
	}
	ignore, ok := optionalBool(c, "ignore_department")
	if !ok {
		return
	}
	result, err := h.service.Available(c.Request.Context(), lectureID, ignore != nil && *ignore, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Assign godoc
// @Summary Assign a substitute
// @Description Commits the assignment in one transaction. Override requires notes and an HOD or admin role.
// @Tags Substitution
// @Accept json
// @Produce json
// @Param payload body dto.AssignSubstituteRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /leaves/substitute/assign [post]
func (h *SubstituteHandler) Assign(c *gin.Context) {
	var req dto.AssignSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	result, err := h.service.Assign(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Request godoc
// @Summary Request cover for a lecture
// @Tags Substitution
// @Accept json
// @Produce json
// @Param payload body dto.SubstituteRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/substitute/request [post]
func (h *SubstituteHandler) Request(c *gin.Context) {
	var payload dto.SubstituteRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	request, err := h.service.Request(c.Request.Context(), payload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ListRequests godoc
// @Summary List cover requests
// @Tags Substitution
// @Produce json
// @Param status query string false "pending, fulfilled or cancelled"
// @Success 200 {object} response.Envelope
// @Router /leaves/substitute/requests [get]
func (h *SubstituteHandler) ListRequests(c *gin.Context) {
	requests, err := h.service.ListRequests(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Report godoc
// @Summary Substitute assignment report
// @Description JSON by default; format=csv or format=pdf downloads a file. Exports above
// @Description EXPORTS_MAX_ROWS, or with async=true, return 202 and an export job instead.
// @Tags Substitution
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param start_date query string false "Start date (YYYY-MM-DD), defaults to the first of this month"
// @Param end_date query string false "End date (YYYY-MM-DD), defaults to today"
// @Param teacher_id query string false "Substitute teacher"
// @Param format query string false "csv or pdf"
// @Param async query bool false "queue the export and return a job"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /leaves/substitute/report [get]
func (h *SubstituteHandler) Report(c *gin.Context) {
	filter := models.SubstituteReportFilter{
		StartDate: strings.TrimSpace(c.Query("start_date")),
		EndDate:   strings.TrimSpace(c.Query("end_date")),
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
	}
	async, ok := optionalBool(c, "async")
	if !ok {
		return
	}
	if raw := c.Query("format"); raw != "" && !strings.EqualFold(raw, "json") {
		format, err := export.ParseFormat(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
			return
		}
		doc, job, err := h.service.RequestReportExport(c.Request.Context(), filter, format, async != nil && *async, claimsFromContext(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		sendExport(c, doc, job)
		return
	}
	if async != nil && *async {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "async exports need format=csv or format=pdf"))
		return
	}

	rows, err := h.service.Report(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil, map[string]interface{}{"count": len(rows)})
}

// Workload godoc
// @Summary Teacher substitution workload this month
// @Tags Substitution
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaves/teachers/{id}/workload [get]
func (h *SubstituteHandler) Workload(c *gin.Context) {
	workload, err := h.service.Workload(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workload, nil)
}
