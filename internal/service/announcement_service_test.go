package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type memoryAnnouncements struct {
	items      map[string]models.Announcement
	lastFilter models.AnnouncementFilter
}

func (m *memoryAnnouncements) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	m.lastFilter = filter
	out := []models.Announcement{}
	for _, a := range m.items {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *memoryAnnouncements) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (m *memoryAnnouncements) Create(ctx context.Context, a *models.Announcement) error {
	a.ID = fmt.Sprintf("ann-%d", len(m.items)+1)
	m.items[a.ID] = *a
	return nil
}

func (m *memoryAnnouncements) Update(ctx context.Context, a *models.Announcement) error {
	m.items[a.ID] = *a
	return nil
}

func (m *memoryAnnouncements) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func newAnnouncementFixture() (*AnnouncementService, *memoryAnnouncements, *auditRecorder) {
	repo := &memoryAnnouncements{items: map[string]models.Announcement{}}
	audit := &auditRecorder{}
	svc := NewAnnouncementService(repo, audit, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }
	return svc, repo, audit
}

func TestAnnouncementServiceCreateDefaults(t *testing.T) {
	svc, repo, audit := newAnnouncementFixture()

	ann, err := svc.Create(context.Background(), AnnouncementRequest{
		Title: " Exam timetable ", Body: "Posted on the notice board", Audience: "students",
		TargetDepartment: ptr("IT"),
	}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Exam timetable", ann.Title)
	assert.Equal(t, models.AnnouncementAudienceStudents, ann.Audience)
	assert.Equal(t, models.AnnouncementPriorityNormal, ann.Priority)
	assert.Nil(t, ann.TargetDepartment, "target department only applies to DEPARTMENT audience")
	assert.Equal(t, "admin-1", ann.CreatedBy)
	assert.Equal(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), ann.PublishedAt)
	assert.Len(t, repo.items, 1)
	assert.Equal(t, []string{models.AuditActionAnnouncement}, audit.actions())
}

func TestAnnouncementServiceValidation(t *testing.T) {
	svc, repo, _ := newAnnouncementFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, AnnouncementRequest{Title: "t", Body: "b", Audience: "DEPARTMENT"}, adminClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, AnnouncementRequest{Title: "t", Body: "b", Audience: "PARENTS"}, adminClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	past := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(ctx, AnnouncementRequest{Title: "t", Body: "b", Audience: "ALL", ExpiresAt: &past}, adminClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, AnnouncementRequest{Title: "t", Body: "b", Audience: "ALL", Priority: "urgent"}, adminClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	assert.Empty(t, repo.items)
}

func TestAnnouncementServiceUpdateAndDelete(t *testing.T) {
	svc, repo, audit := newAnnouncementFixture()
	ctx := context.Background()
	repo.items["a1"] = models.Announcement{ID: "a1", Title: "Old", Body: "b", Audience: models.AnnouncementAudienceAll, Priority: models.AnnouncementPriorityLow}

	updated, err := svc.Update(ctx, "a1", AnnouncementRequest{
		Title: "Lab closed", Body: "IT lab closed Friday", Audience: "department", TargetDepartment: ptr("IT"), Priority: "high", IsPinned: true,
	}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementAudienceDepartment, updated.Audience)
	assert.Equal(t, "IT", deref(updated.TargetDepartment))
	assert.Equal(t, models.AnnouncementPriorityHigh, updated.Priority)
	assert.True(t, repo.items["a1"].IsPinned)

	require.NoError(t, svc.Delete(ctx, "a1", adminClaims()))
	assert.Empty(t, repo.items)

	err = svc.Delete(ctx, "a1", adminClaims())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	_, err = svc.Update(ctx, "a1", AnnouncementRequest{Title: "t", Body: "b", Audience: "ALL"}, nil)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	assert.Equal(t, []string{models.AuditActionAnnouncement, models.AuditActionAnnouncement}, audit.actions())
}

func TestAnnouncementServiceListPassesAudienceFilter(t *testing.T) {
	svc, repo, _ := newAnnouncementFixture()
	_, page, err := svc.List(context.Background(), models.AnnouncementFilter{Role: models.RoleStudent, Department: "IT", Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, repo.lastFilter.Role)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.PageSize)
}
