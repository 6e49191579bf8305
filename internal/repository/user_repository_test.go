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

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "teacher_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "hod@example.com", "hash", "HOD", string(models.RoleHOD), "t1", true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("hod@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "hod@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleHOD, user.Role)
	require.NotNil(t, user.TeacherID)
	assert.Equal(t, "t1", *user.TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFoundIsRaw(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "admin@example.com", "hash", "Admin", models.RoleAdmin, sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "admin@example.com", PasswordHash: "hash", FullName: "Admin", Role: models.RoleAdmin, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordMissingUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("ghost", "newhash", fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), "ghost", "newhash", fixedTime)
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
