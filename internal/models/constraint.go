package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// ConstraintKind enumerates supported scheduling rules.
type ConstraintKind string

const (
	ConstraintTeacherUnavailable     ConstraintKind = "TEACHER_UNAVAILABLE"
	ConstraintMaxPeriodsPerDay       ConstraintKind = "MAX_PERIODS_PER_DAY"
	ConstraintPreferredTimeSlot      ConstraintKind = "PREFERRED_TIME_SLOT"
	ConstraintAvoidTimeSlot          ConstraintKind = "AVOID_TIME_SLOT"
	ConstraintLabRequired            ConstraintKind = "LAB_REQUIRED"
	ConstraintNoConsecutiveDifficult ConstraintKind = "NO_CONSECUTIVE_DIFFICULT"
)

// ConstraintSeverity splits rules into infeasibility filters and score
// penalties.
type ConstraintSeverity string

const (
	SeverityHard ConstraintSeverity = "HARD"
	SeveritySoft ConstraintSeverity = "SOFT"
)

// ConstraintScope narrows which candidates a rule applies to.
type ConstraintScope string

const (
	ScopeAll     ConstraintScope = "ALL"
	ScopeTeacher ConstraintScope = "TEACHER"
	ScopeSubject ConstraintScope = "SUBJECT"
	ScopeClass   ConstraintScope = "CLASS"
	ScopeTime    ConstraintScope = "TIME"
)

// Constraint is a persisted scheduling rule scoped to one academic year and
// term. Only the active flag mutates after creation.
type Constraint struct {
	ID           string             `db:"id" json:"id"`
	Kind         ConstraintKind     `db:"kind" json:"kind"`
	Severity     ConstraintSeverity `db:"severity" json:"severity"`
	Weight       int                `db:"weight" json:"weight"`
	Scope        ConstraintScope    `db:"scope" json:"scope"`
	IncludeIDs   pq.StringArray     `db:"include_ids" json:"include_ids"`
	ExcludeIDs   pq.StringArray     `db:"exclude_ids" json:"exclude_ids"`
	Params       types.JSONText     `db:"params" json:"params"`
	Active       bool               `db:"active" json:"active"`
	AcademicYear string             `db:"academic_year" json:"academic_year"`
	Term         int                `db:"term" json:"term"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}
