package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/export"
)

type teacherServiceMock struct {
	filter      models.TeacherFilter
	deactivated string
	actor       *models.JWTClaims
}

func (m *teacherServiceMock) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	m.filter = filter
	return []models.Teacher{{ID: "t-1", Department: "IT"}}, models.NewPagination(filter.Page, filter.PageSize, 1), nil
}

func (m *teacherServiceMock) Get(ctx context.Context, id string) (*models.Teacher, error) {
	return &models.Teacher{ID: id}, nil
}

func (m *teacherServiceMock) Create(ctx context.Context, req service.CreateTeacherRequest, actor *models.JWTClaims) (*models.Teacher, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
}

func (m *teacherServiceMock) Update(ctx context.Context, id string, req service.UpdateTeacherRequest, actor *models.JWTClaims) (*models.Teacher, error) {
	return &models.Teacher{ID: id, Name: req.Name}, nil
}

func (m *teacherServiceMock) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	m.deactivated, m.actor = id, actor
	return nil
}

func TestTeacherHandlerRoutes(t *testing.T) {
	mock := &teacherServiceMock{}
	h := NewTeacherHandler(mock)
	r := testRouter(hodClaims)
	r.GET("/teachers", h.List)
	r.POST("/teachers", h.Create)
	r.DELETE("/teachers/:id", h.Delete)

	w := doJSON(r, http.MethodGet, "/teachers?department=IT&active=true&limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IT", mock.filter.Department)
	require.NotNil(t, mock.filter.Active)
	assert.True(t, *mock.filter.Active)
	assert.Equal(t, 50, mock.filter.PageSize)

	w = doJSON(r, http.MethodGet, "/teachers?active=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.filter.Active)
	assert.False(t, *mock.filter.Active)

	w = doJSON(r, http.MethodGet, "/teachers?active=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/teachers", service.CreateTeacherRequest{Name: "Asha", Email: "asha@college.edu", Department: "IT"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodDelete, "/teachers/t-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "t-1", mock.deactivated)
	assert.Same(t, hodClaims, mock.actor)
}

type studentServiceMock struct {
	filter  models.StudentFilter
	created service.CreateStudentRequest
}

func (m *studentServiceMock) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	m.filter = filter
	return []models.Student{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (m *studentServiceMock) Get(ctx context.Context, id string) (*models.Student, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (m *studentServiceMock) Create(ctx context.Context, req service.CreateStudentRequest, actor *models.JWTClaims) (*models.Student, error) {
	m.created = req
	return &models.Student{ID: "s-1", RollNumber: req.RollNumber}, nil
}

func (m *studentServiceMock) Update(ctx context.Context, id string, req service.UpdateStudentRequest, actor *models.JWTClaims) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (m *studentServiceMock) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	return nil
}

func TestStudentHandlerClassShorthand(t *testing.T) {
	mock := &studentServiceMock{}
	h := NewStudentHandler(mock)
	r := testRouter(hodClaims)
	r.GET("/students", h.List)
	r.GET("/students/:id", h.Get)
	r.POST("/students", h.Create)

	w := doJSON(r, http.MethodGet, "/students?class=se-a&sort=name&order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SE", mock.filter.ClassYear)
	assert.Equal(t, "A", mock.filter.Division)
	assert.Equal(t, "desc", mock.filter.SortOrder)

	w = doJSON(r, http.MethodGet, "/students?class=SE-A&division=B", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "B", mock.filter.Division)

	w = doJSON(r, http.MethodGet, "/students/s-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/students", `{"roll_number":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/students", service.CreateStudentRequest{RollNumber: "IT-001", Name: "Meera", Department: "IT", ClassYear: "SE", Division: "A"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "IT-001", mock.created.RollNumber)
}

func TestSplitClass(t *testing.T) {
	year, div, ok := splitClass(" TE A ")
	require.True(t, ok)
	assert.Equal(t, "TE", year)
	assert.Equal(t, "A", div)

	_, _, ok = splitClass("TE")
	assert.False(t, ok)
}

type authServiceMock struct {
	login   models.LoginRequest
	created *models.CreateUserRequest
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.login = req
	if req.Password != "correct-horse" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}, nil
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Role: models.RoleHOD}, nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return nil
}

func (m *authServiceMock) CreateUser(ctx context.Context, req models.CreateUserRequest, actor *models.JWTClaims) (*models.UserInfo, error) {
	m.created = &req
	return &models.UserInfo{ID: "user-2", Email: req.Email, Role: req.Role}, nil
}

func TestAuthHandlerLoginAndMe(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)

	public := testRouter(nil)
	public.POST("/auth/login", h.Login)
	public.GET("/auth/me", h.Me)

	w := doJSON(public, http.MethodPost, "/auth/login", models.LoginRequest{Email: "hod@college.edu", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(public, http.MethodPost, "/auth/login", models.LoginRequest{Email: "hod@college.edu", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hod@college.edu", mock.login.Email)
	assert.NotEmpty(t, mock.login.IP)

	w = doJSON(public, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	private := testRouter(hodClaims)
	private.GET("/auth/me", h.Me)
	private.POST("/users", h.CreateUser)
	w = doJSON(private, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), hodClaims.UserID)

	w = doJSON(private, http.MethodPost, "/users", models.CreateUserRequest{Email: "t@college.edu", Password: "longenough", FullName: "T", Role: models.RoleTeacher})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.created)
	assert.Equal(t, models.RoleTeacher, mock.created.Role)
}

type auditServiceMock struct {
	filter models.AuditLogFilter
	format export.Format
	async  bool
	actor  *models.JWTClaims
}

func (m *auditServiceMock) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	m.filter = filter
	return []models.AuditLog{}, models.NewPagination(1, 20, 0), nil
}

func (m *auditServiceMock) RequestExport(ctx context.Context, filter models.AuditLogFilter, format export.Format, async bool, actor *models.JWTClaims) (*service.ExportDocument, *models.ExportJob, error) {
	m.filter, m.format, m.async, m.actor = filter, format, async, actor
	if async {
		return nil, &models.ExportJob{ID: "exp-1", Kind: models.ExportKindAuditLog, Status: models.ExportJobQueued, StatusURL: "/api/v1/exports/jobs/exp-1"}, nil
	}
	return &service.ExportDocument{Filename: "audit_log.pdf", ContentType: format.ContentType(), Body: []byte("%PDF-1.3")}, nil, nil
}

func TestAuditHandlerParsesRange(t *testing.T) {
	mock := &auditServiceMock{}
	h := NewAuditHandler(mock)
	r := testRouter(hodClaims)
	r.GET("/audit-logs", h.List)
	r.GET("/audit-logs/export", h.Export)

	w := doJSON(r, http.MethodGet, "/audit-logs?action=SUBSTITUTE_ASSIGN&from=2025-03-01&to=2025-03-31T23:59:59Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SUBSTITUTE_ASSIGN", mock.filter.Action)
	require.NotNil(t, mock.filter.From)
	require.NotNil(t, mock.filter.To)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *mock.filter.From)

	w = doJSON(r, http.MethodGet, "/audit-logs?from=March", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/audit-logs/export?format=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatPDF, mock.format)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.False(t, mock.async)
	assert.Equal(t, hodClaims, mock.actor)

	w = doJSON(r, http.MethodGet, "/audit-logs/export?async=true", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, mock.async)
	assert.Equal(t, "/api/v1/exports/jobs/exp-1", w.Header().Get("Location"))
	assert.Contains(t, string(decode(t, w).Data), `"status":"QUEUED"`)

	w = doJSON(r, http.MethodGet, "/audit-logs/export?async=later", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type announcementServiceMock struct {
	filter models.AnnouncementFilter
}

func (m *announcementServiceMock) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	m.filter = filter
	return []models.Announcement{}, models.NewPagination(1, 20, 0), nil
}

func (m *announcementServiceMock) Get(ctx context.Context, id string) (*models.Announcement, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
}

func (m *announcementServiceMock) Create(ctx context.Context, req service.AnnouncementRequest, actor *models.JWTClaims) (*models.Announcement, error) {
	if req.Audience == string(models.AnnouncementAudienceDepartment) && req.TargetDepartment == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target_department is required for DEPARTMENT audience")
	}
	return &models.Announcement{ID: "ann-1", Title: req.Title}, nil
}

func (m *announcementServiceMock) Update(ctx context.Context, id string, req service.AnnouncementRequest, actor *models.JWTClaims) (*models.Announcement, error) {
	return &models.Announcement{ID: id}, nil
}

func (m *announcementServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	return nil
}

func TestAnnouncementHandlerScopesByRole(t *testing.T) {
	mock := &announcementServiceMock{}
	h := NewAnnouncementHandler(mock)
	teacher := &models.JWTClaims{UserID: "u-t", Role: models.RoleTeacher}
	r := testRouter(teacher)
	r.GET("/announcements", h.List)
	r.GET("/announcements/:id", h.Get)
	r.POST("/announcements", h.Create)

	w := doJSON(r, http.MethodGet, "/announcements?department=IT&pinned=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleTeacher, mock.filter.Role)
	assert.Equal(t, "IT", mock.filter.Department)
	assert.True(t, mock.filter.PinnedOnly)

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/announcements/missing", nil).Code)

	w = doJSON(r, http.MethodPost, "/announcements", service.AnnouncementRequest{Title: "Lab closed", Body: "b", Audience: "DEPARTMENT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
