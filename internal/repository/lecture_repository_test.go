package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/models"
)

var lectureRowColumns = []string{"id", "subject", "class_year", "division", "room", "date", "day_of_week", "start_time", "end_time", "scheduled_teacher_id", "substitute_teacher_id", "status", "series_id", "created_at", "updated_at"}

func TestLectureRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	rows := sqlmock.NewRows(lectureRowColumns).
		AddRow("l1", "Networks", "TE", "A", "R1", "2025-03-10", "Monday", "10:00", "11:00", "t1", nil, "scheduled", nil, fixedTime, fixedTime)
	mock.ExpectQuery(regexp.QuoteMeta("FROM lectures WHERE 1=1 AND date >= $1 AND date <= $2 AND (scheduled_teacher_id = $3 OR substitute_teacher_id = $3) ORDER BY date ASC, start_time ASC, id ASC LIMIT 20 OFFSET 0")).
		WithArgs("2025-03-01", "2025-03-31", "t1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lectures WHERE 1=1 AND date >= $1")).
		WithArgs("2025-03-01", "2025-03-31", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	lectures, total, err := repo.List(context.Background(), models.LectureFilter{DateFrom: "2025-03-01", DateTo: "2025-03-31", TeacherID: "t1"})
	require.NoError(t, err)
	require.Len(t, lectures, 1)
	assert.Equal(t, "t1", lectures[0].ScheduledTeacher())
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM lectures WHERE date = $1 ORDER BY start_time ASC, id ASC")).
		WithArgs("2025-03-10").
		WillReturnRows(sqlmock.NewRows(lectureRowColumns).
			AddRow("l1", "Networks", "TE", "A", "R1", "2025-03-10", "Monday", "10:00", "11:00", "t1", nil, "scheduled", nil, fixedTime, fixedTime).
			AddRow("l2", "DBMS", "TE", "B", "R2", "2025-03-10", "Monday", "10:10", "11:10", "t2", nil, "cancelled", nil, fixedTime, fixedTime))

	lectures, err := repo.ListByDate(context.Background(), "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, lectures, 2)
	assert.Equal(t, models.LectureStatusCancelled, lectures[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryBulkCreateCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lectures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lectures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	batch := []models.Lecture{
		{Subject: "Networks", Date: "2025-03-10", StartTime: "10:00", EndTime: "11:00"},
		{Subject: "Networks", Date: "2025-03-17", StartTime: "10:00", EndTime: "11:00"},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), batch))
	assert.NotEmpty(t, batch[0].ID)
	assert.Equal(t, models.LectureStatusScheduled, batch[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryBulkCreateRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lectures").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lectures").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.BulkCreate(context.Background(), []models.Lecture{{Subject: "A"}, {Subject: "B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE lectures SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("l1", models.LectureStatusCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "l1", models.LectureStatusCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}
