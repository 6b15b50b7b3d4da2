package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableSlotRepository persists committed slots for a timetable.
type TimetableSlotRepository struct {
	db *sqlx.DB
}

// NewTimetableSlotRepository constructs the repository.
func NewTimetableSlotRepository(db *sqlx.DB) *TimetableSlotRepository {
	return &TimetableSlotRepository{db: db}
}

func (r *TimetableSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch stores the slot list for a timetable.
func (r *TimetableSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `
INSERT INTO timetable_slots (id, timetable_id, class_id, subject_id, teacher_id, day_of_week,
period_index, start_minute, end_minute, is_double, is_exam, exam_type, created_at)
VALUES (:id, :timetable_id, :class_id, :subject_id, :teacher_id, :day_of_week,
:period_index, :start_minute, :end_minute, :is_double, :is_exam, :exam_type, :created_at)`
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		if slots[i].CreatedAt.IsZero() {
			slots[i].CreatedAt = now
		}
	}
	if _, err := sqlx.NamedExecContext(ctx, target, query, slots); err != nil {
		return fmt.Errorf("insert timetable slots: %w", err)
	}
	return nil
}

// ListByTimetable returns slot detail in deterministic grid order.
func (r *TimetableSlotRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	const query = `SELECT id, timetable_id, class_id, subject_id, teacher_id, day_of_week,
period_index, start_minute, end_minute, is_double, is_exam, exam_type, created_at
FROM timetable_slots WHERE timetable_id = $1 ORDER BY day_of_week, start_minute, class_id`
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}
