package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

type announcementService interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, req service.AnnouncementRequest, actor *models.JWTClaims) (*models.Announcement, error)
	Update(ctx context.Context, id string, req service.AnnouncementRequest, actor *models.JWTClaims) (*models.Announcement, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// AnnouncementHandler exposes the notice board.
type AnnouncementHandler struct {
	service announcementService
}

// NewAnnouncementHandler constructs AnnouncementHandler.
func NewAnnouncementHandler(svc announcementService) *AnnouncementHandler {
	return &AnnouncementHandler{service: svc}
}

// List godoc
// @Summary List announcements
// @Description Active announcements visible to the caller's role, pinned first.
// @Tags Announcements
// @Produce json
// @Param department query string false "Include DEPARTMENT announcements for this department"
// @Param pinned query bool false "Pinned only"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	filter := models.AnnouncementFilter{Department: strings.TrimSpace(c.Query("department"))}
	if claims := claimsFromContext(c); claims != nil {
		filter.Role = claims.Role
	}
	pinned, ok := optionalBool(c, "pinned")
	if !ok {
		return
	}
	if pinned != nil {
		filter.PinnedOnly = *pinned
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get announcement
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Publish announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body service.AnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req service.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body service.AnnouncementRequest true "Announcement payload"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	var req service.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
