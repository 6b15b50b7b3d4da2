package models

import (
	"fmt"
	"sort"
	"time"
)

// PeriodType classifies a slot in the weekly grid. Only TEACHING periods
// are schedulable.
type PeriodType string

const (
	PeriodTypeTeaching PeriodType = "TEACHING"
	PeriodTypeBreak    PeriodType = "BREAK"
	PeriodTypeLunch    PeriodType = "LUNCH"
	PeriodTypeAssembly PeriodType = "ASSEMBLY"
)

// noonMinute separates morning from afternoon starts (12:00).
const noonMinute = 12 * 60

// Period is one fixed interval in a day's grid. Times are minutes from
// midnight.
type Period struct {
	ID          string     `db:"id" json:"id"`
	DayOfWeek   int        `db:"day_of_week" json:"day_of_week"`
	Index       int        `db:"period_index" json:"index"`
	Type        PeriodType `db:"type" json:"type"`
	StartMinute int        `db:"start_minute" json:"start_minute"`
	EndMinute   int        `db:"end_minute" json:"end_minute"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// IsMorning reports whether the period starts before 12:00.
func (p Period) IsMorning() bool {
	return p.StartMinute < noonMinute
}

// TimeOfDay buckets the period start for preference matching.
func (p Period) TimeOfDay() TimeOfDay {
	switch {
	case p.StartMinute < 11*60:
		return TimeOfDayMorning
	case p.StartMinute < 13*60:
		return TimeOfDayMidday
	default:
		return TimeOfDayAfternoon
	}
}

// PeriodGrid is the weekly day/period layout for one academic year and term.
type PeriodGrid struct {
	AcademicYear string   `json:"academic_year"`
	Term         int      `json:"term"`
	Periods      []Period `json:"periods"`
}

// Validate rejects malformed grids before generation: empty grids, inverted
// intervals, and overlapping periods within the same day.
func (g PeriodGrid) Validate() error {
	if len(g.Periods) == 0 {
		return fmt.Errorf("period grid for %s term %d is empty", g.AcademicYear, g.Term)
	}
	byDay := make(map[int][]Period)
	for _, p := range g.Periods {
		if p.DayOfWeek < 1 || p.DayOfWeek > 7 {
			return fmt.Errorf("period %s has day_of_week %d outside 1-7", p.ID, p.DayOfWeek)
		}
		if p.EndMinute <= p.StartMinute {
			return fmt.Errorf("period %s ends at or before its start", p.ID)
		}
		byDay[p.DayOfWeek] = append(byDay[p.DayOfWeek], p)
	}
	for day, periods := range byDay {
		sort.Slice(periods, func(i, j int) bool { return periods[i].StartMinute < periods[j].StartMinute })
		for i := 1; i < len(periods); i++ {
			if periods[i].StartMinute < periods[i-1].EndMinute {
				return fmt.Errorf("overlapping periods on day %d: %02d:%02d-%02d:%02d and %02d:%02d-%02d:%02d",
					day,
					periods[i-1].StartMinute/60, periods[i-1].StartMinute%60,
					periods[i-1].EndMinute/60, periods[i-1].EndMinute%60,
					periods[i].StartMinute/60, periods[i].StartMinute%60,
					periods[i].EndMinute/60, periods[i].EndMinute%60,
				)
			}
		}
	}
	return nil
}

// TeachingPeriods returns the schedulable periods in deterministic grid
// order: day ascending, then start time ascending.
func (g PeriodGrid) TeachingPeriods() []Period {
	result := make([]Period, 0, len(g.Periods))
	for _, p := range g.Periods {
		if p.Type == PeriodTypeTeaching {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].StartMinute < result[j].StartMinute
	})
	return result
}
