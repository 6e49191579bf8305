package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/dto"
	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

type leaveService interface {
	List(ctx context.Context, filter models.LeaveFilter, actor *models.JWTClaims) ([]models.LeaveRequest, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.LeaveRequest, error)
	Create(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
	Decide(ctx context.Context, id string, req dto.LeaveDecisionRequest, actor *models.JWTClaims) (*models.LeaveRequest, error)
}

// LeaveHandler exposes leave request endpoints.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs LeaveHandler.
func NewLeaveHandler(svc leaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// List godoc
// @Summary List leave requests
// @Description Teachers only see their own requests.
// @Tags Leaves
// @Produce json
// @Param teacher_id query string false "Teacher"
// @Param status query string false "pending, approved or denied"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaves/requests [get]
func (h *LeaveHandler) List(c *gin.Context) {
	filter := models.LeaveFilter{
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		Status:    strings.TrimSpace(c.Query("status")),
		DateFrom:  strings.TrimSpace(c.Query("from")),
		DateTo:    strings.TrimSpace(c.Query("to")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	leaves, pagination, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, pagination)
}

// Get godoc
// @Summary Get leave request
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaves/requests/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	leave, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Create godoc
// @Summary File a leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/requests [post]
func (h *LeaveHandler) Create(c *gin.Context) {
	var req dto.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}
	leave, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// Decide godoc
// @Summary Approve or deny a leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body dto.LeaveDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /leaves/requests/{id}/decision [post]
func (h *LeaveHandler) Decide(c *gin.Context) {
	var req dto.LeaveDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	leave, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}
