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

type lectureService interface {
	List(ctx context.Context, filter models.LectureFilter) ([]models.Lecture, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Lecture, error)
	Create(ctx context.Context, req dto.CreateLectureRequest, actor *models.JWTClaims) (*models.Lecture, error)
	CreateRecurring(ctx context.Context, req dto.RecurringLectureRequest, actor *models.JWTClaims) (*dto.RecurringLectureResult, error)
	Update(ctx context.Context, id string, req dto.UpdateLectureRequest, actor *models.JWTClaims) (*models.Lecture, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.Lecture, error)
	Complete(ctx context.Context, id string, actor *models.JWTClaims) (*models.Lecture, error)
	WeeklyTimetable(ctx context.Context, query dto.WeeklyTimetableQuery) (*dto.WeeklyTimetable, error)
}

// LectureHandler exposes timetable endpoints.
type LectureHandler struct {
	service lectureService
}

// NewLectureHandler constructs LectureHandler.
func NewLectureHandler(svc lectureService) *LectureHandler {
	return &LectureHandler{service: svc}
}

// List godoc
// @Summary List lectures
// @Tags Lectures
// @Produce json
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param teacher_id query string false "Scheduled or substitute teacher"
// @Param class_year query string false "Class year"
// @Param division query string false "Division"
// @Param room query string false "Room"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lectures [get]
func (h *LectureHandler) List(c *gin.Context) {
	filter := models.LectureFilter{
		DateFrom:  strings.TrimSpace(c.Query("from")),
		DateTo:    strings.TrimSpace(c.Query("to")),
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		ClassYear: strings.TrimSpace(c.Query("class_year")),
		Division:  strings.TrimSpace(c.Query("division")),
		Room:      strings.TrimSpace(c.Query("room")),
		Status:    strings.TrimSpace(c.Query("status")),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	lectures, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lectures, pagination)
}

// Get godoc
// @Summary Get lecture
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lectures/{id} [get]
func (h *LectureHandler) Get(c *gin.Context) {
	lecture, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Create godoc
// @Summary Schedule a lecture
// @Description Rejects a class, teacher or room collision on the same date with 409; the colliding lecture is returned in meta.conflict.
// @Tags Lectures
// @Accept json
// @Produce json
// @Param payload body dto.CreateLectureRequest true "Lecture payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lectures [post]
func (h *LectureHandler) Create(c *gin.Context) {
	var req dto.CreateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lecture payload"))
		return
	}
	lecture, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lecture)
}

// CreateRecurring godoc
// @Summary Schedule a recurring lecture series
// @Tags Lectures
// @Accept json
// @Produce json
// @Param payload body dto.RecurringLectureRequest true "Recurrence payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lectures/recurring [post]
func (h *LectureHandler) CreateRecurring(c *gin.Context) {
	var req dto.RecurringLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recurrence payload"))
		return
	}
	result, err := h.service.CreateRecurring(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil, map[string]interface{}{
		"created": len(result.Created),
		"skipped": len(result.Conflicts),
	})
}

// Update godoc
// @Summary Edit or reschedule a lecture
// @Tags Lectures
// @Accept json
// @Produce json
// @Param id path string true "Lecture ID"
// @Param payload body dto.UpdateLectureRequest true "Lecture changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /lectures/{id} [put]
func (h *LectureHandler) Update(c *gin.Context) {
	var req dto.UpdateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lecture payload"))
		return
	}
	lecture, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Cancel godoc
// @Summary Cancel a lecture
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /lectures/{id}/cancel [post]
func (h *LectureHandler) Cancel(c *gin.Context) {
	lecture, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Complete godoc
// @Summary Mark a lecture completed
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /lectures/{id}/complete [post]
func (h *LectureHandler) Complete(c *gin.Context) {
	lecture, err := h.service.Complete(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Weekly godoc
// @Summary Weekly timetable
// @Tags Lectures
// @Produce json
// @Param week_of query string false "Any date in the week (YYYY-MM-DD), defaults to today"
// @Param teacher_id query string false "Teacher"
// @Param class_year query string false "Class year"
// @Param division query string false "Division"
// @Success 200 {object} response.Envelope
// @Router /lectures/timetable/weekly [get]
func (h *LectureHandler) Weekly(c *gin.Context) {
	var query dto.WeeklyTimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable query"))
		return
	}
	timetable, err := h.service.WeeklyTimetable(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}
