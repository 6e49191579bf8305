package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

// Self lets a caller through when the :id route parameter is its own user or teacher id.
const Self = "SELF"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == Self {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && isSelf(c.Param("id"), claims) {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

func isSelf(target string, claims *models.JWTClaims) bool {
	if target == "" {
		return false
	}
	return target == claims.UserID || (claims.TeacherID != "" && target == claims.TeacherID)
}

type departmentLeadLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// RequireDepartmentLead admits the given roles, plus teachers whose directory
// record marks them as HOD or acting HOD.
func RequireDepartmentLead(teachers departmentLeadLookup, roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if claims.TeacherID != "" && teachers != nil {
			teacher, err := teachers.FindByID(c.Request.Context(), claims.TeacherID)
			switch {
			case err == nil && teacher.LeadsDepartment():
				c.Next()
				return
			case err != nil && !errors.Is(err, sql.ErrNoRows):
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher"))
				c.Abort()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
