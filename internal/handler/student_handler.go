package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	"github.com/campusdesk/college-admin-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, req service.CreateStudentRequest, actor *models.JWTClaims) (*models.Student, error)
	Update(ctx context.Context, id string, req service.UpdateStudentRequest, actor *models.JWTClaims) (*models.Student, error)
	Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error
}

// StudentHandler serves the student roster to staff.
type StudentHandler struct {
	students studentService
}

func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Description class=SE-A is shorthand for class_year=SE&division=A.
// @Tags Students
// @Produce json
// @Param search query string false "Name or roll number"
// @Param department query string false "Department"
// @Param class query string false "Class year and division, e.g. SE-A"
// @Param class_year query string false "Class year"
// @Param division query string false "Division"
// @Param active query bool false "Active state"
// @Param sort query string false "name, roll_number, class_year or created_at"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	q, ok := readDirectoryQuery(c)
	if !ok {
		return
	}
	filter := models.StudentFilter{
		Search:     q.Search,
		Department: q.Department,
		ClassYear:  strings.TrimSpace(c.Query("class_year")),
		Division:   strings.TrimSpace(c.Query("division")),
		Active:     q.Active,
		SortBy:     q.Sort,
		SortOrder:  q.Order,
		Page:       q.Page,
		PageSize:   q.Size,
	}
	if year, division, ok := splitClass(c.Query("class")); ok {
		if filter.ClassYear == "" {
			filter.ClassYear = year
		}
		if filter.Division == "" {
			filter.Division = division
		}
	}

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Enrol a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if !bindJSON(c, &req, "student") {
		return
	}
	student, err := h.students.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if !bindJSON(c, &req, "student") {
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Deactivate a student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Deactivate(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// splitClass parses "SE-A" or "SE A" into class year and division.
func splitClass(raw string) (string, string, bool) {
	fields := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool { return r == '-' || r == ' ' })
	if len(fields) != 2 {
		return "", "", false
	}
	return strings.ToUpper(fields[0]), strings.ToUpper(fields[1]), true
}
