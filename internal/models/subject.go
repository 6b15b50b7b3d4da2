package models

import (
	"time"

	"github.com/lib/pq"
)

// SubjectCategory groups subjects for prioritisation and reporting.
type SubjectCategory string

const (
	SubjectCategoryCore        SubjectCategory = "CORE"
	SubjectCategoryMathematics SubjectCategory = "MATHEMATICS"
	SubjectCategoryScience     SubjectCategory = "SCIENCE"
	SubjectCategoryLanguage    SubjectCategory = "LANGUAGE"
	SubjectCategoryArts        SubjectCategory = "ARTS"
	SubjectCategorySports      SubjectCategory = "SPORTS"
)

// Difficulty tiers drive placement ordering and morning preference.
type Difficulty string

const (
	DifficultyLow    Difficulty = "LOW"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHigh   Difficulty = "HIGH"
)

// TimeOfDay buckets a period start for subject slot preferences.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "MORNING"
	TimeOfDayMidday    TimeOfDay = "MIDDAY"
	TimeOfDayAfternoon TimeOfDay = "AFTERNOON"
)

// Subject represents an academic subject and its scheduling profile.
// Immutable during a generation run.
type Subject struct {
	ID              string          `db:"id" json:"id"`
	Code            string          `db:"code" json:"code"`
	Name            string          `db:"name" json:"name"`
	Category        SubjectCategory `db:"category" json:"category"`
	EligibleLevels  pq.StringArray  `db:"eligible_levels" json:"eligible_levels"`
	PeriodsPerWeek  int             `db:"periods_per_week" json:"periods_per_week"`
	PeriodDuration  int             `db:"period_duration" json:"period_duration"`
	Difficulty      Difficulty      `db:"difficulty" json:"difficulty"`
	RequiresLab     bool            `db:"requires_lab" json:"requires_lab"`
	AllowsDouble    bool            `db:"allows_double" json:"allows_double"`
	PreferredSlots  pq.StringArray  `db:"preferred_slots" json:"preferred_slots"`
	ExamDurationMin int             `db:"exam_duration_min" json:"exam_duration_min"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// AppliesToLevel reports whether the subject is taught at the given class level.
func (s Subject) AppliesToLevel(level string) bool {
	for _, l := range s.EligibleLevels {
		if l == level {
			return true
		}
	}
	return false
}

// DifficultyRank maps the tier onto the 0-2 priority bonus.
func (s Subject) DifficultyRank() int {
	switch s.Difficulty {
	case DifficultyHigh:
		return 2
	case DifficultyMedium:
		return 1
	default:
		return 0
	}
}
