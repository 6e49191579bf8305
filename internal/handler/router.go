package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/middleware"
	"github.com/campusdesk/college-admin-api/internal/models"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type teacherFinder interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type auditLogWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Teachers      *TeacherHandler
	Students      *StudentHandler
	Lectures      *LectureHandler
	Leaves        *LeaveHandler
	Substitutes   *SubstituteHandler
	Announcements *AnnouncementHandler
	Audit         *AuditHandler
	Configuration *ConfigurationHandler
	Dashboard     *DashboardHandler
	Exports       *ExportJobHandler
}

// RouteDeps carries what the route table needs besides handlers.
type RouteDeps struct {
	Tokens   tokenValidator
	AuditLog auditLogWriter
	Logger   *zap.Logger
	// Teachers resolves HOD and acting-HOD flags for TEACHER accounts.
	Teachers teacherFinder
}

var (
	adminRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}
	hodRoles   = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleHOD}
	staffRoles = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleHOD, models.RoleTeacher}
)

// hodOrSelf admits HOD-capable roles and the teacher named by :id.
func hodOrSelf() []string {
	names := make([]string, 0, len(hodRoles)+1)
	for _, r := range hodRoles {
		names = append(names, string(r))
	}
	return append(names, middleware.Self)
}

// RegisterRoutes mounts the API on the given group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, deps RouteDeps) {
	api.POST("/auth/login", h.Auth.Login)
	// Signed links are followed by browsers, so the token is the only credential.
	api.GET("/exports/download/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.POST("/users", middleware.RequireRoles(adminRoles...), h.Auth.CreateUser)

	teachers := secured.Group("/teachers")
	teachers.GET("", h.Teachers.List)
	teachers.GET("/:id", h.Teachers.Get)
	teachers.POST("", middleware.RequireRoles(adminRoles...), h.Teachers.Create)
	teachers.PUT("/:id", middleware.RequireRoles(adminRoles...), h.Teachers.Update)
	teachers.DELETE("/:id", middleware.RequireRoles(adminRoles...), h.Teachers.Delete)

	students := secured.Group("/students", middleware.RequireRoles(staffRoles...))
	students.GET("", h.Students.List)
	students.GET("/:id", h.Students.Get)
	students.POST("", middleware.RequireRoles(adminRoles...), h.Students.Create)
	students.PUT("/:id", middleware.RequireRoles(adminRoles...), h.Students.Update)
	students.DELETE("/:id", middleware.RequireRoles(adminRoles...), h.Students.Delete)

	lectures := secured.Group("/lectures")
	lectures.GET("", h.Lectures.List)
	lectures.GET("/timetable/weekly", h.Lectures.Weekly)
	lectures.GET("/:id", h.Lectures.Get)
	lectures.POST("", middleware.RequireRoles(hodRoles...), h.Lectures.Create)
	lectures.POST("/recurring", middleware.RequireRoles(hodRoles...), h.Lectures.CreateRecurring)
	lectures.PUT("/:id", middleware.RequireRoles(hodRoles...), h.Lectures.Update)
	lectures.POST("/:id/cancel", middleware.RequireRoles(hodRoles...), h.Lectures.Cancel)
	lectures.POST("/:id/complete", middleware.RequireRoles(staffRoles...), h.Lectures.Complete)

	leaves := secured.Group("/leaves", middleware.RequireRoles(staffRoles...))
	leaves.GET("/requests", h.Leaves.List)
	leaves.GET("/requests/:id", h.Leaves.Get)
	leaves.POST("/requests", h.Leaves.Create)
	leaves.POST("/requests/:id/decision", middleware.RequireRoles(hodRoles...), h.Leaves.Decide)

	leaves.GET("/lectures/needingsubstitutes", h.Substitutes.NeedingCoverage)
	departmentLead := middleware.RequireDepartmentLead(deps.Teachers, hodRoles...)
	leaves.GET("/teachers/available", departmentLead, h.Substitutes.Available)
	leaves.GET("/teachers/:id/workload", middleware.RBAC(hodOrSelf()...), h.Substitutes.Workload)
	leaves.POST("/substitute/assign", departmentLead, h.Substitutes.Assign)
	leaves.POST("/substitute/request", h.Substitutes.Request)
	leaves.GET("/substitute/requests", middleware.RequireRoles(hodRoles...), h.Substitutes.ListRequests)
	leaves.GET("/substitute/report", middleware.RequireRoles(hodRoles...),
		middleware.Audit(deps.AuditLog, deps.Logger, models.AuditActionExport, "substitute_report"), h.Substitutes.Report)

	announcements := secured.Group("/announcements")
	announcements.GET("", h.Announcements.List)
	announcements.GET("/:id", h.Announcements.Get)
	announcements.POST("", middleware.RequireRoles(hodRoles...), h.Announcements.Create)
	announcements.PUT("/:id", middleware.RequireRoles(hodRoles...), h.Announcements.Update)
	announcements.DELETE("/:id", middleware.RequireRoles(hodRoles...), h.Announcements.Delete)

	audit := secured.Group("/audit-logs", middleware.RequireRoles(adminRoles...))
	audit.GET("", h.Audit.List)
	audit.GET("/export", middleware.Audit(deps.AuditLog, deps.Logger, models.AuditActionExport, "audit_log"), h.Audit.Export)

	configuration := secured.Group("/configuration", middleware.RequireRoles(adminRoles...))
	configuration.GET("", h.Configuration.List)
	configuration.PUT("/bulk", h.Configuration.BulkUpdate)
	configuration.GET("/:key", h.Configuration.Get)
	configuration.PUT("/:key", h.Configuration.Update)

	secured.GET("/dashboard", middleware.RequireRoles(hodRoles...), h.Dashboard.Summary)
	secured.GET("/exports/jobs/:id", middleware.RequireRoles(hodRoles...), h.Exports.Status)
}
