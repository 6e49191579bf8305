package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/dto"
	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type lectureServiceMock struct {
	filter    models.LectureFilter
	createErr error
	weekly    dto.WeeklyTimetableQuery
	cancelled string
}

func (m *lectureServiceMock) List(ctx context.Context, filter models.LectureFilter) ([]models.Lecture, *models.Pagination, error) {
	m.filter = filter
	return []models.Lecture{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *lectureServiceMock) Get(ctx context.Context, id string) (*models.Lecture, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
}

func (m *lectureServiceMock) Create(ctx context.Context, req dto.CreateLectureRequest, actor *models.JWTClaims) (*models.Lecture, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Lecture{ID: "lec-1", Subject: req.Subject}, nil
}

func (m *lectureServiceMock) CreateRecurring(ctx context.Context, req dto.RecurringLectureRequest, actor *models.JWTClaims) (*dto.RecurringLectureResult, error) {
	return &dto.RecurringLectureResult{
		SeriesID:  "series-1",
		Created:   []models.Lecture{{ID: "a"}, {ID: "b"}},
		Conflicts: []models.LectureConflict{{LectureID: "x", Dimension: "ROOM"}},
	}, nil
}

func (m *lectureServiceMock) Update(ctx context.Context, id string, req dto.UpdateLectureRequest, actor *models.JWTClaims) (*models.Lecture, error) {
	return &models.Lecture{ID: id}, nil
}

func (m *lectureServiceMock) Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.Lecture, error) {
	m.cancelled = id
	return &models.Lecture{ID: id, Status: models.LectureStatusCancelled}, nil
}

func (m *lectureServiceMock) Complete(ctx context.Context, id string, actor *models.JWTClaims) (*models.Lecture, error) {
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecture is cancelled")
}

func (m *lectureServiceMock) WeeklyTimetable(ctx context.Context, query dto.WeeklyTimetableQuery) (*dto.WeeklyTimetable, error) {
	m.weekly = query
	return &dto.WeeklyTimetable{From: "2025-03-10", To: "2025-03-16"}, nil
}

func lectureRouter(mock *lectureServiceMock) http.Handler {
	h := NewLectureHandler(mock)
	r := testRouter(hodClaims)
	r.GET("/lectures", h.List)
	r.GET("/lectures/timetable/weekly", h.Weekly)
	r.GET("/lectures/:id", h.Get)
	r.POST("/lectures", h.Create)
	r.POST("/lectures/recurring", h.CreateRecurring)
	r.PUT("/lectures/:id", h.Update)
	r.POST("/lectures/:id/cancel", h.Cancel)
	r.POST("/lectures/:id/complete", h.Complete)
	return r
}

func TestLectureHandlerListParsesFilters(t *testing.T) {
	mock := &lectureServiceMock{}
	w := doJSON(lectureRouter(mock), http.MethodGet, "/lectures?from=2025-03-01&class_year=SE&division=A&status=scheduled&page=2&limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03-01", mock.filter.DateFrom)
	assert.Equal(t, "SE", mock.filter.ClassYear)
	assert.Equal(t, "A", mock.filter.Division)
	assert.Equal(t, "scheduled", mock.filter.Status)
	assert.Equal(t, 2, mock.filter.Page)
	assert.Equal(t, 5, mock.filter.PageSize)
}

func TestLectureHandlerCreateConflictCarriesMeta(t *testing.T) {
	conflict := &models.LectureConflictError{
		Message:  "teacher already has a lecture at 10:00",
		Conflict: models.LectureConflict{LectureID: "lec-9", Date: "2025-03-10", StartTime: "10:00", EndTime: "11:00", Dimension: "TEACHER"},
	}
	mock := &lectureServiceMock{createErr: appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)}

	w := doJSON(lectureRouter(mock), http.MethodPost, "/lectures", dto.CreateLectureRequest{Subject: "DBMS"})
	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrConflict.Code, env.Error.Code)
	detail, ok := env.Meta["conflict"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "lec-9", detail["lecture_id"])
	assert.Equal(t, "TEACHER", detail["dimension"])
}

func TestLectureHandlerCreateRecurringReportsCounts(t *testing.T) {
	w := doJSON(lectureRouter(&lectureServiceMock{}), http.MethodPost, "/lectures/recurring", dto.RecurringLectureRequest{Subject: "OS"})
	require.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.Equal(t, float64(2), env.Meta["created"])
	assert.Equal(t, float64(1), env.Meta["skipped"])
}

func TestLectureHandlerTransitions(t *testing.T) {
	mock := &lectureServiceMock{}
	r := lectureRouter(mock)

	w := doJSON(r, http.MethodPost, "/lectures/lec-1/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lec-1", mock.cancelled)

	w = doJSON(r, http.MethodPost, "/lectures/lec-1/complete", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = doJSON(r, http.MethodGet, "/lectures/lec-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPut, "/lectures/lec-1", "[]")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLectureHandlerWeeklyBindsQuery(t *testing.T) {
	mock := &lectureServiceMock{}
	w := doJSON(lectureRouter(mock), http.MethodGet, "/lectures/timetable/weekly?week_of=2025-03-12&class_year=TE&division=B", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03-12", mock.weekly.WeekOf)
	assert.Equal(t, "TE", mock.weekly.ClassYear)
	assert.Equal(t, "B", mock.weekly.Division)
}
