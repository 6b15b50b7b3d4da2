package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestTimetableRepositoryCreateVersioned(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetables WHERE academic_year = $1 AND term = $2 AND type = $3")).
		WithArgs("2026/2027", 1, string(models.TimetableTypeTeaching)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetables")).
		WithArgs(sqlmock.AnyArg(), "Teaching 2026/2027 T1", "2026/2027", 1,
			string(models.TimetableTypeTeaching), string(models.TimetableStatusDraft), 4,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.Timetable{
		Name:         "Teaching 2026/2027 T1",
		AcademicYear: "2026/2027",
		Term:         1,
		Type:         models.TimetableTypeTeaching,
		Meta:         types.JSONText(`{"stats":{}}`),
	}
	require.NoError(t, repo.CreateVersioned(context.Background(), nil, payload))
	assert.Equal(t, 4, payload.Version)
	assert.NotEmpty(t, payload.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateVersionedRequiresTerm(t *testing.T) {
	db, _ := newRepoMock(t)
	repo := NewTimetableRepository(db)

	err := repo.CreateVersioned(context.Background(), nil, &models.Timetable{AcademicYear: "2026/2027"})
	assert.Error(t, err)
}

func TestTimetableRepositoryDeleteNotFound(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpdateStatus(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(string(models.TimetableStatusActive), sqlmock.AnyArg(), "tt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), nil, "tt-1", models.TimetableStatusActive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryArchiveActive(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetables SET status = $1, updated_at = $2")).
		WithArgs(string(models.TimetableStatusArchived), sqlmock.AnyArg(), "2026/2027", 1,
			string(models.TimetableTypeTeaching), string(models.TimetableStatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ArchiveActive(context.Background(), nil, "2026/2027", 1, models.TimetableTypeTeaching))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByTerm(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "academic_year", "term", "type", "status", "version", "meta", "created_at", "updated_at"}).
		AddRow("tt-1", "Teaching", "2026/2027", 1, "TEACHING", "ACTIVE", 1, types.JSONText(`{}`), time.Now(), time.Now()).
		AddRow("tt-2", "Exam", "2026/2027", 1, "EXAM", "DRAFT", 1, types.JSONText(`{}`), time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, academic_year").
		WithArgs("2026/2027", 1).
		WillReturnRows(rows)

	list, err := repo.ListByTerm(context.Background(), "2026/2027", 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
