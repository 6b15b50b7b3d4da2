package engine

import (
	"github.com/google/uuid"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// OptimizeFor tags the scoring strategy recorded on generated timetables.
// The baseline weights implement BALANCED_WORKLOAD; the tag is
// informational.
type OptimizeFor string

const (
	OptimizeBalancedWorkload    OptimizeFor = "BALANCED_WORKLOAD"
	OptimizeTeacherPreferences  OptimizeFor = "TEACHER_PREFERENCES"
	OptimizeSubjectDistribution OptimizeFor = "SUBJECT_DISTRIBUTION"
	OptimizeMinimizeConflicts   OptimizeFor = "MINIMIZE_CONFLICTS"
)

// Options tune one teaching-timetable generation run. The boolean
// toggles are taken literally, so the zero value runs with the morning
// preference off; callers wanting the documented defaults must start
// from DefaultOptions.
type Options struct {
	OptimizeFor               OptimizeFor
	AllowBackToBackDifficult  bool
	MaxPeriodsPerDayPerTeacher int
	PreferMorningForDifficult bool
}

// DefaultOptions is the entry point for the documented defaults.
func DefaultOptions() Options {
	return Options{
		OptimizeFor:                OptimizeBalancedWorkload,
		AllowBackToBackDifficult:   false,
		MaxPeriodsPerDayPerTeacher: 6,
		PreferMorningForDifficult:  true,
	}
}

// withDefaults backfills only the fields whose zero value is unusable.
// Boolean toggles pass through unchanged.
func (o Options) withDefaults() Options {
	if o.OptimizeFor == "" {
		o.OptimizeFor = OptimizeBalancedWorkload
	}
	if o.MaxPeriodsPerDayPerTeacher <= 0 {
		o.MaxPeriodsPerDayPerTeacher = 6
	}
	return o
}

const (
	baseSlotScore    = 100
	baseTeacherScore = 50
)

// placer runs the greedy pass: for each requirement in priority order it
// scans every teaching period, filters hard-infeasible candidates, scores
// the survivors and commits the best (slot, teacher) pair. Deliberately
// myopic: no backtracking, no look-ahead.
type placer struct {
	periods []models.Period
	opts    Options
	rules   RuleSet
	builder *Builder
}

// place commits the best candidate for the requirement, or returns false
// when no feasible slot/teacher combination exists. Ties resolve to the
// first candidate in grid order (earliest day, earliest period).
func (p *placer) place(req Requirement) bool {
	var (
		found       bool
		bestScore   int
		bestPeriod  models.Period
		bestTeacher models.Teacher
	)
	for _, period := range p.periods {
		if p.builder.ClassBusy(req.Class.ID, period.DayOfWeek, period.StartMinute) {
			continue
		}
		teacher, ok := p.selectTeacher(req, period)
		if !ok {
			continue
		}
		candidate := Candidate{Class: req.Class, Subject: req.Subject, Teacher: teacher, Period: period}
		score := p.scoreSlot(candidate)
		if score <= 0 {
			continue
		}
		if !found || score > bestScore {
			found = true
			bestScore = score
			bestPeriod = period
			bestTeacher = teacher
		}
	}
	if !found {
		return false
	}
	p.builder.Commit(models.TimetableSlot{
		ID:          uuid.NewString(),
		ClassID:     req.Class.ID,
		SubjectID:   req.Subject.ID,
		TeacherID:   bestTeacher.ID,
		DayOfWeek:   bestPeriod.DayOfWeek,
		PeriodIndex: bestPeriod.Index,
		StartMinute: bestPeriod.StartMinute,
		EndMinute:   bestPeriod.EndMinute,
	})
	return true
}

// scoreSlot prices a feasible candidate starting from 100.
func (p *placer) scoreSlot(c Candidate) int {
	score := baseSlotScore

	if p.opts.PreferMorningForDifficult && c.Subject.Difficulty == models.DifficultyHigh {
		if c.Period.IsMorning() {
			score += 20
		} else {
			score -= 10
		}
	}

	if len(c.Subject.PreferredSlots) > 0 {
		if hasPreferredSlot(c.Subject, c.Period) {
			score += 15
		} else {
			score -= 5
		}
	}

	if !p.opts.AllowBackToBackDifficult {
		if p.builder.AdjacentDifficult(c.Class.ID, c.Period.DayOfWeek, c.Period.Index) && c.Subject.Difficulty == models.DifficultyHigh {
			score -= 25
		}
	}

	load := p.builder.TeacherDayLoad(c.Teacher.ID, c.Period.DayOfWeek)
	dailyCap := p.opts.MaxPeriodsPerDayPerTeacher
	if load >= dailyCap {
		return 0
	}
	if float64(load) > 0.75*float64(dailyCap) {
		score -= 10
	}

	score -= p.rules.SoftPenalty(c, p.builder)
	return score
}

// selectTeacher picks the best eligible, currently available teacher for
// the period: base 50, -5 per committed period that day, +15 for the
// class's homeroom teacher. Teachers whose candidate would violate a hard
// rule are skipped, so a blocked teacher never masks an available
// colleague. First-found wins on ties.
func (p *placer) selectTeacher(req Requirement, period models.Period) (models.Teacher, bool) {
	var (
		found bool
		best  models.Teacher
		bestS int
	)
	for _, teacher := range req.Teachers {
		if p.builder.TeacherBusy(teacher.ID, period.DayOfWeek, period.StartMinute) {
			continue
		}
		load := p.builder.TeacherDayLoad(teacher.ID, period.DayOfWeek)
		if load >= p.opts.MaxPeriodsPerDayPerTeacher {
			continue
		}
		candidate := Candidate{Class: req.Class, Subject: req.Subject, Teacher: teacher, Period: period}
		if p.rules.Violates(candidate, p.builder) != nil {
			continue
		}
		score := baseTeacherScore - 5*load
		if req.Class.HomeroomTeacherID != nil && *req.Class.HomeroomTeacherID == teacher.ID {
			score += 15
		}
		if !found || score > bestS {
			found = true
			best = teacher
			bestS = score
		}
	}
	return best, found
}

func hasPreferredSlot(subject models.Subject, period models.Period) bool {
	slot := string(period.TimeOfDay())
	for _, preferred := range subject.PreferredSlots {
		if preferred == slot {
			return true
		}
	}
	return false
}
