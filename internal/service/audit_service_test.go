package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/export"
)

type fakeAuditLogs struct {
	logs      []models.AuditLog
	err       error
	lastLimit int
}

func (f *fakeAuditLogs) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	return f.logs, len(f.logs), f.err
}

func (f *fakeAuditLogs) ListForExport(ctx context.Context, filter models.AuditLogFilter, limit int) ([]models.AuditLog, error) {
	f.lastLimit = limit
	return f.logs, f.err
}

func TestAuditServiceExportCSV(t *testing.T) {
	at := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	repo := &fakeAuditLogs{logs: []models.AuditLog{{
		ID: "1", UserID: ptr("hod-1"), Action: models.AuditActionSubstituteAssign, Resource: "lecture",
		ResourceID: ptr("L1"), IPAddress: "10.0.0.1", CreatedAt: at,
	}}}
	svc := NewAuditService(repo, NewExportService(ExportConfig{MaxRows: 50}, nil, nil, nil), nil, nil)

	doc, err := svc.Export(context.Background(), models.AuditLogFilter{}, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit)
	lines := strings.Split(strings.TrimSpace(string(doc.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Time,User,Action,Resource,Resource ID,IP", lines[0])
	assert.Equal(t, "2025-03-10T09:30:00Z,hod-1,SUBSTITUTE_ASSIGN,lecture,L1,10.0.0.1", lines[1])
}

func TestAuditServiceListValidatesRange(t *testing.T) {
	svc := NewAuditService(&fakeAuditLogs{}, nil, nil, nil)
	from := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	_, _, err := svc.List(context.Background(), models.AuditLogFilter{From: &from, To: &to})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	logs, page, err := svc.List(context.Background(), models.AuditLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, 1, page.Page)
}

func TestAuditServiceSurfacesRepositoryErrors(t *testing.T) {
	svc := NewAuditService(&fakeAuditLogs{err: errors.New("timeout")}, nil, nil, nil)
	_, err := svc.Export(context.Background(), models.AuditLogFilter{}, export.FormatPDF)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
