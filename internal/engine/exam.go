package engine

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ExamSettings tune exam-timetable derivation.
type ExamSettings struct {
	ExamDays       []int
	MaxExamsPerDay int
	// MinTimeBetweenExams is accepted for wire compatibility but not
	// enforced by the first-fit pass.
	MinTimeBetweenExams int
	PrioritizeCore      bool
	ExamType            string
}

func (s ExamSettings) withDefaults() ExamSettings {
	if s.MaxExamsPerDay <= 0 {
		s.MaxExamsPerDay = 3
	}
	if s.ExamType == "" {
		s.ExamType = "FINAL"
	}
	return s
}

type examPair struct {
	SubjectID string
	ClassID   string
}

// GenerateExam derives one exam slot per (subject, class) pair taught in the
// teaching timetable. Pairs never taught get no exam. First-fit over the
// exam days' teaching periods: a pair lands on the first vacant slot whose
// day is still under the daily cap; pairs with no fit stay unscheduled. No
// invigilator is assigned at this stage.
func (e *Engine) GenerateExam(teachingSlots []models.TimetableSlot, catalog Catalog, settings ExamSettings) (*Result, error) {
	settings = settings.withDefaults()

	if err := catalog.Grid.Validate(); err != nil {
		return nil, err
	}
	if settings.MinTimeBetweenExams > 0 {
		e.logger.Debug("minTimeBetweenExams is not enforced", zap.Int("minutes", settings.MinTimeBetweenExams))
	}

	pairs := lo.UniqBy(
		lo.FilterMap(teachingSlots, func(s models.TimetableSlot, _ int) (examPair, bool) {
			return examPair{SubjectID: s.SubjectID, ClassID: s.ClassID}, !s.IsExam
		}),
		func(p examPair) examPair { return p },
	)

	subjects := catalog.subjectsByID()
	if settings.PrioritizeCore {
		sort.SliceStable(pairs, func(i, j int) bool {
			return isCore(subjects[pairs[i].SubjectID]) && !isCore(subjects[pairs[j].SubjectID])
		})
	}

	examPeriods := make([]models.Period, 0)
	for _, period := range catalog.Grid.TeachingPeriods() {
		if containsInt(settings.ExamDays, period.DayOfWeek) {
			examPeriods = append(examPeriods, period)
		}
	}

	occupied := make(map[timeKey]bool)
	perDay := make(map[int]int)
	var slots []models.TimetableSlot
	var unplaced []UnplacedRequirement

	for _, pair := range pairs {
		placed := false
		for _, period := range examPeriods {
			key := timeKey{Day: period.DayOfWeek, Start: period.StartMinute}
			if occupied[key] || perDay[period.DayOfWeek] >= settings.MaxExamsPerDay {
				continue
			}
			slots = append(slots, models.TimetableSlot{
				ID:          uuid.NewString(),
				ClassID:     pair.ClassID,
				SubjectID:   pair.SubjectID,
				DayOfWeek:   period.DayOfWeek,
				PeriodIndex: period.Index,
				StartMinute: period.StartMinute,
				EndMinute:   period.EndMinute,
				IsExam:      true,
				ExamType:    settings.ExamType,
			})
			occupied[key] = true
			perDay[period.DayOfWeek]++
			placed = true
			break
		}
		if !placed {
			unplaced = append(unplaced, UnplacedRequirement{SubjectID: pair.SubjectID, ClassID: pair.ClassID, Count: 1})
		}
	}

	conflicts := DetectConflicts(slots)
	stats := ComputeStats(slots, conflicts, len(pairs))

	e.logger.Info("exam timetable generated",
		zap.Int("pairs", len(pairs)),
		zap.Int("placed", len(slots)),
		zap.Int("completion", stats.CompletionPercentage),
	)

	return &Result{Slots: slots, Conflicts: conflicts, Stats: stats, Unplaced: unplaced}, nil
}

func isCore(s models.Subject) bool {
	return s.Category == models.SubjectCategoryCore || s.Category == models.SubjectCategoryMathematics
}
