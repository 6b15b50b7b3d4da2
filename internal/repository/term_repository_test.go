package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermRepositoryGetByYearTerm(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTermRepository(db)

	rows := sqlmock.NewRows([]string{"id", "academic_year", "term", "name", "start_date", "end_date", "is_active", "created_at", "updated_at"}).
		AddRow("term-1", "2026/2027", 1, "Odd Term 2026/2027", time.Now(), time.Now().AddDate(0, 6, 0), true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, academic_year, term, name").
		WithArgs("2026/2027", 1).
		WillReturnRows(rows)

	record, err := repo.GetByYearTerm(context.Background(), "2026/2027", 1)
	require.NoError(t, err)
	assert.Equal(t, "term-1", record.ID)
	assert.Equal(t, 1, record.Term)
	assert.True(t, record.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryGetByYearTermNotFound(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTermRepository(db)

	mock.ExpectQuery("SELECT id, academic_year, term, name").
		WithArgs("2030/2031", 2).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByYearTerm(context.Background(), "2030/2031", 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
