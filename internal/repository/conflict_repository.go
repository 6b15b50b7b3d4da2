package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ConflictRepository persists residual conflicts per timetable.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs the repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

func (r *ConflictRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceForTimetable swaps the stored conflict list wholesale, matching the
// detector's recompute-everything contract.
func (r *ConflictRepository) ReplaceForTimetable(ctx context.Context, exec sqlx.ExtContext, timetableID string, conflicts []models.TimetableConflict) error {
	target := r.exec(exec)

	const deleteQuery = `DELETE FROM timetable_conflicts WHERE timetable_id = $1`
	if _, err := target.ExecContext(ctx, deleteQuery, timetableID); err != nil {
		return fmt.Errorf("clear timetable conflicts: %w", err)
	}
	if len(conflicts) == 0 {
		return nil
	}

	now := time.Now().UTC()
	const insertQuery = `
INSERT INTO timetable_conflicts (id, timetable_id, kind, description, severity, slot_ids, resolved, created_at)
VALUES (:id, :timetable_id, :kind, :description, :severity, :slot_ids, :resolved, :created_at)`
	for i := range conflicts {
		if conflicts[i].ID == "" {
			conflicts[i].ID = uuid.NewString()
		}
		conflicts[i].TimetableID = timetableID
		if conflicts[i].CreatedAt.IsZero() {
			conflicts[i].CreatedAt = now
		}
	}
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, conflicts); err != nil {
		return fmt.Errorf("insert timetable conflicts: %w", err)
	}
	return nil
}

// ListByTimetable returns the stored conflicts for a timetable.
func (r *ConflictRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableConflict, error) {
	const query = `SELECT id, timetable_id, kind, description, severity, slot_ids, resolved, created_at
FROM timetable_conflicts WHERE timetable_id = $1 ORDER BY created_at, id`
	var conflicts []models.TimetableConflict
	if err := r.db.SelectContext(ctx, &conflicts, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable conflicts: %w", err)
	}
	return conflicts, nil
}
