package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// TimetableType separates weekly teaching grids from derived exam grids.
type TimetableType string

const (
	TimetableTypeTeaching TimetableType = "TEACHING"
	TimetableTypeExam     TimetableType = "EXAM"
)

// TimetableStatus represents the document lifecycle.
type TimetableStatus string

const (
	TimetableStatusDraft    TimetableStatus = "DRAFT"
	TimetableStatusActive   TimetableStatus = "ACTIVE"
	TimetableStatusArchived TimetableStatus = "ARCHIVED"
)

// Timetable is a versioned generated schedule document for a year-term pair.
type Timetable struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	AcademicYear string          `db:"academic_year" json:"academic_year"`
	Term         int             `db:"term" json:"term"`
	Type         TimetableType   `db:"type" json:"type"`
	Status       TimetableStatus `db:"status" json:"status"`
	Version      int             `db:"version" json:"version"`
	Meta         types.JSONText  `db:"meta" json:"meta"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableSlot is one committed (class, subject, teacher, day, period)
// assignment inside a timetable.
type TimetableSlot struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	PeriodIndex int       `db:"period_index" json:"period_index"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	IsDouble    bool      `db:"is_double" json:"is_double"`
	IsExam      bool      `db:"is_exam" json:"is_exam"`
	ExamType    string    `db:"exam_type" json:"exam_type,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ConflictKind enumerates residual clashes found after placement.
type ConflictKind string

const (
	ConflictTeacherDoubleBooked ConflictKind = "TEACHER_DOUBLE_BOOKED"
	ConflictClassDoubleBooked   ConflictKind = "CLASS_DOUBLE_BOOKED"
)

// ConflictSeverityCritical marks conflicts that invalidate a timetable.
const ConflictSeverityCritical = "CRITICAL"

// TimetableConflict records one residual clash between committed slots.
type TimetableConflict struct {
	ID          string         `db:"id" json:"id"`
	TimetableID string         `db:"timetable_id" json:"timetable_id"`
	Kind        ConflictKind   `db:"kind" json:"kind"`
	Description string         `db:"description" json:"description"`
	Severity    string         `db:"severity" json:"severity"`
	SlotIDs     pq.StringArray `db:"slot_ids" json:"slot_ids"`
	Resolved    bool           `db:"resolved" json:"resolved"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// TimetableStats is derived bookkeeping recomputed whenever slots change.
type TimetableStats struct {
	TotalSlots           int     `json:"total_slots"`
	RequiredSlots        int     `json:"required_slots"`
	UnresolvedConflicts  int     `json:"unresolved_conflicts"`
	CompletionPercentage int     `json:"completion_percentage"`
	AverageTeacherLoad   float64 `json:"average_teacher_load"`
}
