package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ConstraintRepository reads scheduling constraints for a year-term pair.
type ConstraintRepository struct {
	db *sqlx.DB
}

// NewConstraintRepository constructs the repository.
func NewConstraintRepository(db *sqlx.DB) *ConstraintRepository {
	return &ConstraintRepository{db: db}
}

// ListActive returns the active constraints scoped to (academic year, term).
func (r *ConstraintRepository) ListActive(ctx context.Context, academicYear string, term int) ([]models.Constraint, error) {
	const query = `SELECT id, kind, severity, weight, scope, include_ids, exclude_ids, params, active,
academic_year, term, created_at, updated_at
FROM constraints WHERE academic_year = $1 AND term = $2 AND active = TRUE ORDER BY created_at`
	var constraints []models.Constraint
	if err := r.db.SelectContext(ctx, &constraints, query, academicYear, term); err != nil {
		return nil, fmt.Errorf("list active constraints: %w", err)
	}
	return constraints, nil
}

// SetActive toggles a constraint's activation state. Constraints never
// mutate otherwise once created.
func (r *ConstraintRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE constraints SET active = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("toggle constraint: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("constraint rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("constraint %s not found", id)
	}
	return nil
}
