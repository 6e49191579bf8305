package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/models"
)

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionSubstituteAssign, Resource: "substitute_assignments"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "old_values", "new_values", "ip_address", "user_agent", "created_at"}).
		AddRow("a1", "u1", "LOGIN", "auth", nil, nil, nil, "127.0.0.1", "test", fixedTime)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE 1=1 AND action = $1 AND created_at >= $2 ORDER BY created_at DESC, id ASC LIMIT 10 OFFSET 10")).
		WithArgs("LOGIN", from).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE 1=1 AND action = $1")).
		WithArgs("LOGIN", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	logs, total, err := repo.List(context.Background(), models.AuditLogFilter{Action: "login", From: &from, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListForExport(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE 1=1 AND resource = $1 ORDER BY created_at DESC, id ASC LIMIT 500")).
		WithArgs("lectures").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.ListForExport(context.Background(), models.AuditLogFilter{Resource: "lectures"}, 500)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
