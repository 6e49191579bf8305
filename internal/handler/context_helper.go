package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/middleware"
	"github.com/campusdesk/college-admin-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}
