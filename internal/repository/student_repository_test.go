package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/models"
)

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "roll_number", "name", "email", "phone", "department", "class_year", "division", "is_active", "created_at", "updated_at"}).
		AddRow("s1", "IT-001", "Student", nil, nil, "IT", "SE", "A", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+studentColumns+" FROM students WHERE class_year = $1 AND division = $2 ORDER BY roll_number ASC LIMIT 20 OFFSET 0")).
		WithArgs("SE", "A").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE class_year = $1 AND division = $2")).
		WithArgs("SE", "A").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{ClassYear: "SE", Division: "A"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), "IT-001", "Student", sqlmock.AnyArg(), sqlmock.AnyArg(), "IT", "SE", "A", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Student{RollNumber: "IT-001", Name: "Student", Department: "IT", ClassYear: "SE", Division: "A", IsActive: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByRollNumberNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE roll_number = $1 AND id <> $2 LIMIT 1")).
		WithArgs("IT-001", "s1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByRollNumber(context.Background(), "IT-001", "s1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
