package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TermRepository reads academic term records.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs the repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// GetByYearTerm loads one term record. Returns sql.ErrNoRows when the
// year-term tuple is unknown.
func (r *TermRepository) GetByYearTerm(ctx context.Context, academicYear string, term int) (*models.Term, error) {
	const query = `SELECT id, academic_year, term, name, start_date, end_date, is_active, created_at, updated_at
FROM terms WHERE academic_year = $1 AND term = $2`
	var record models.Term
	if err := r.db.GetContext(ctx, &record, query, academicYear, term); err != nil {
		return nil, err
	}
	return &record, nil
}
