package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableRepository persists versioned timetable documents.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a timetable assigning the next version for the
// (year, term, type) tuple.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.AcademicYear == "" || timetable.Term == 0 {
		return fmt.Errorf("academic_year and term are required")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Status == "" {
		timetable.Status = models.TimetableStatusDraft
	}
	if timetable.Type == "" {
		timetable.Type = models.TimetableTypeTeaching
	}
	if len(timetable.Meta) == 0 {
		timetable.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetables WHERE academic_year = $1 AND term = $2 AND type = $3`
	if err := sqlx.GetContext(ctx, target, &timetable.Version, nextVersionQuery, timetable.AcademicYear, timetable.Term, timetable.Type); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetables (id, name, academic_year, term, type, status, version, meta, created_at, updated_at)
VALUES (:id, :name, :academic_year, :term, :type, :status, :version, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// ListByTerm returns all timetable versions for the year-term tuple.
func (r *TimetableRepository) ListByTerm(ctx context.Context, academicYear string, term int) ([]models.Timetable, error) {
	const query = `SELECT id, name, academic_year, term, type, status, version, meta, created_at, updated_at
FROM timetables WHERE academic_year = $1 AND term = $2 ORDER BY type, version DESC`
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, academicYear, term); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// FindByID loads a timetable by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, name, academic_year, term, type, status, version, meta, created_at, updated_at
FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// Delete removes a stored timetable version.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus updates the lifecycle status of a timetable.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error {
	target := r.exec(exec)
	const query = `UPDATE timetables SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := target.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ArchiveActive archives the currently active timetable of the same
// (year, term, type) so at most one version is active at a time.
func (r *TimetableRepository) ArchiveActive(ctx context.Context, exec sqlx.ExtContext, academicYear string, term int, timetableType models.TimetableType) error {
	target := r.exec(exec)
	const query = `UPDATE timetables SET status = $1, updated_at = $2
WHERE academic_year = $3 AND term = $4 AND type = $5 AND status = $6`
	if _, err := target.ExecContext(ctx, query, models.TimetableStatusArchived, time.Now().UTC(), academicYear, term, timetableType, models.TimetableStatusActive); err != nil {
		return fmt.Errorf("archive active timetable: %w", err)
	}
	return nil
}
