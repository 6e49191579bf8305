package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	"github.com/campusdesk/college-admin-api/migrations"
	"github.com/campusdesk/college-admin-api/pkg/export"
	"github.com/campusdesk/college-admin-api/pkg/storage"
)

type creatorStub struct {
	got models.CreateUserRequest
}

func (c *creatorStub) CreateUser(_ context.Context, req models.CreateUserRequest, actor *models.JWTClaims) (*models.UserInfo, error) {
	c.got = req
	return &models.UserInfo{ID: "u-1", Email: req.Email, Role: req.Role}, nil
}

func TestCreateUserNormalisesRoleAndTeacher(t *testing.T) {
	stub := &creatorStub{}
	user, err := createUser(context.Background(), stub, createUserOptions{
		email: "hod@college.test", name: "Head", role: " hod ", teacherID: " t-1 ", password: "s3cretpass",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, models.RoleHOD, stub.got.Role)
	require.NotNil(t, stub.got.TeacherID)
	assert.Equal(t, "t-1", *stub.got.TeacherID)
}

func TestCreateUserRequiresPassword(t *testing.T) {
	_, err := createUser(context.Background(), &creatorStub{}, createUserOptions{email: "a@b.test", name: "A"})
	assert.Error(t, err)
}

type exporterStub struct {
	filter models.SubstituteReportFilter
	format export.Format
	err    error
}

func (e *exporterStub) ExportReport(_ context.Context, filter models.SubstituteReportFilter, format export.Format) (*service.ExportDocument, error) {
	e.filter, e.format = filter, format
	if e.err != nil {
		return nil, e.err
	}
	return &service.ExportDocument{Filename: "substitute_report_20250310_090000." + string(format), Rows: 2, Body: []byte("rows")}, nil
}

func TestWriteSubstituteReport(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exporter := &exporterStub{}
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	written, err := writeSubstituteReport(context.Background(), exporter, store, reportOptions{
		from: "2025-03-01", to: "2025-03-10", teacherID: "t-9", format: "PDF",
	}, now, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.Dir(), "2025-03", "substitute_report_20250310_090000.pdf"), written)
	assert.Equal(t, export.FormatPDF, exporter.format)
	assert.Equal(t, models.SubstituteReportFilter{StartDate: "2025-03-01", EndDate: "2025-03-10", TeacherID: "t-9"}, exporter.filter)
	body, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Equal(t, "rows", string(body))
}

func TestWriteSubstituteReportRejectsFormat(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exporter := &exporterStub{}
	_, err = writeSubstituteReport(context.Background(), exporter, store, reportOptions{format: "xlsx"}, time.Now(), zap.NewNop())
	assert.Error(t, err)
	assert.Empty(t, exporter.format)
}

func TestWriteSubstituteReportPropagatesExportError(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	boom := errors.New("db down")
	_, err = writeSubstituteReport(context.Background(), &exporterStub{err: boom}, store, reportOptions{format: "csv"}, time.Now(), zap.NewNop())
	assert.ErrorIs(t, err, boom)
}

func TestRunMigrationsAppliesEveryScript(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close() //nolint:errcheck

	scripts, err := migrations.All()
	require.NoError(t, err)
	for range scripts {
		mock.ExpectBegin()
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
	}

	applied, err := runMigrations(context.Background(), sqlx.NewDb(raw, "postgres"), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, len(scripts), applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
