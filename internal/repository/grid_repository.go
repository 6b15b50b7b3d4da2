package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// GridRepository reads the weekly day/period grid for a year-term pair.
type GridRepository struct {
	db *sqlx.DB
}

// NewGridRepository constructs the repository.
func NewGridRepository(db *sqlx.DB) *GridRepository {
	return &GridRepository{db: db}
}

// GetByTerm loads the grid scoped to (academic year, term) in deterministic
// order. Validation is the caller's responsibility.
func (r *GridRepository) GetByTerm(ctx context.Context, academicYear string, term int) (*models.PeriodGrid, error) {
	const query = `SELECT id, day_of_week, period_index, type, start_minute, end_minute, created_at
FROM periods WHERE academic_year = $1 AND term = $2 ORDER BY day_of_week, start_minute`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, academicYear, term); err != nil {
		return nil, fmt.Errorf("load period grid: %w", err)
	}
	return &models.PeriodGrid{AcademicYear: academicYear, Term: term, Periods: periods}, nil
}
