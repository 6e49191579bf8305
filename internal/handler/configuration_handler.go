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

type settingsService interface {
	List(ctx context.Context) ([]dto.ConfigurationItem, error)
	Get(ctx context.Context, key string) (*dto.ConfigurationItem, error)
	Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*dto.ConfigurationItem, error)
	BulkUpdate(ctx context.Context, req dto.BulkUpdateConfigurationRequest, actor *models.JWTClaims) ([]dto.ConfigurationItem, error)
}

// ConfigurationHandler serves the admin settings endpoints.
type ConfigurationHandler struct {
	settings settingsService
}

func NewConfigurationHandler(settings settingsService) *ConfigurationHandler {
	return &ConfigurationHandler{settings: settings}
}

// List godoc
// @Summary List system settings
// @Description Every supported key is returned; unset keys carry their default and is_default=true.
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /configuration [get]
func (h *ConfigurationHandler) List(c *gin.Context) {
	items, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get a system setting
// @Tags Configuration
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /configuration/{key} [get]
func (h *ConfigurationHandler) Get(c *gin.Context) {
	item, err := h.settings.Get(c.Request.Context(), settingKey(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Change a system setting
// @Description The body key may be omitted; when present it must match the path.
// @Tags Configuration
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body dto.UpdateConfigurationRequest true "New value"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /configuration/{key} [put]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	var req dto.UpdateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}

	key := settingKey(c)
	if body := strings.TrimSpace(req.Key); body != "" && body != key {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "body key does not match path"))
		return
	}

	item, err := h.settings.Update(c.Request.Context(), key, req.Value, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// BulkUpdate godoc
// @Summary Change several settings at once
// @Description Nothing is written unless every item is valid.
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body dto.BulkUpdateConfigurationRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /configuration/bulk [put]
func (h *ConfigurationHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	items, err := h.settings.BulkUpdate(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

func settingKey(c *gin.Context) string {
	return strings.TrimSpace(c.Param("key"))
}
