package engine

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Candidate is the (class, subject, teacher, period) tuple a rule judges.
type Candidate struct {
	Class   models.Class
	Subject models.Subject
	Teacher models.Teacher
	Period  models.Period
}

// Violation reports that a candidate breaks a rule. Hard violations make the
// slot infeasible; soft ones only penalise its score.
type Violation struct {
	ConstraintID string
	Kind         models.ConstraintKind
	Severity     models.ConstraintSeverity
	Weight       int
	Message      string
}

// Rule evaluates one constraint kind against a candidate and the committed
// schedule so far. A nil return means no violation.
type Rule interface {
	Evaluate(c Candidate, b *Builder) *Violation
}

// CompiledRule pairs a typed rule with its source constraint record.
type CompiledRule struct {
	Source models.Constraint
	Rule   Rule
}

// RuleSet is the compiled, severity-partitioned view of the active
// constraints for one run.
type RuleSet struct {
	Hard []CompiledRule
	Soft []CompiledRule
}

// Violates returns the first hard violation for the candidate, if any.
func (rs RuleSet) Violates(c Candidate, b *Builder) *Violation {
	for _, rule := range rs.Hard {
		if !scopeMatches(rule.Source, c) {
			continue
		}
		if v := rule.Rule.Evaluate(c, b); v != nil {
			return v
		}
	}
	return nil
}

// SoftPenalty sums the score penalty of all violated soft rules.
func (rs RuleSet) SoftPenalty(c Candidate, b *Builder) int {
	penalty := 0
	for _, rule := range rs.Soft {
		if !scopeMatches(rule.Source, c) {
			continue
		}
		if v := rule.Rule.Evaluate(c, b); v != nil {
			penalty += 3 * v.Weight
		}
	}
	return penalty
}

// CompileRules turns persisted constraint records into typed rules.
// Malformed soft constraints fail open: they are skipped with a warning so a
// broken advisory rule degrades scoring quality instead of halting the run.
// Malformed hard constraints are a data error and abort compilation.
func CompileRules(constraints []models.Constraint, logger *zap.Logger) (RuleSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var rs RuleSet
	for _, c := range constraints {
		if !c.Active {
			continue
		}
		rule, err := compileRule(c)
		if err != nil {
			if c.Severity == models.SeverityHard {
				return RuleSet{}, fmt.Errorf("hard constraint %s (%s): %w", c.ID, c.Kind, err)
			}
			logger.Warn("skipping malformed soft constraint",
				zap.String("constraint_id", c.ID),
				zap.String("kind", string(c.Kind)),
				zap.Error(err),
			)
			continue
		}
		compiled := CompiledRule{Source: c, Rule: rule}
		if c.Severity == models.SeverityHard {
			rs.Hard = append(rs.Hard, compiled)
		} else {
			rs.Soft = append(rs.Soft, compiled)
		}
	}
	return rs, nil
}

func compileRule(c models.Constraint) (Rule, error) {
	switch c.Kind {
	case models.ConstraintTeacherUnavailable:
		var p TeacherUnavailableParams
		if err := decodeParams(c.Params, &p); err != nil {
			return nil, err
		}
		if p.TeacherID == "" {
			return nil, fmt.Errorf("teacher_id is required")
		}
		if p.DayOfWeek < 1 || p.DayOfWeek > 7 {
			return nil, fmt.Errorf("day_of_week %d outside 1-7", p.DayOfWeek)
		}
		if p.EndMinute <= p.StartMinute {
			return nil, fmt.Errorf("time window is empty")
		}
		return teacherUnavailableRule{params: p, weight: c.Weight, source: c}, nil
	case models.ConstraintMaxPeriodsPerDay:
		var p MaxPeriodsPerDayParams
		if err := decodeParams(c.Params, &p); err != nil {
			return nil, err
		}
		if p.Max <= 0 {
			return nil, fmt.Errorf("max must be positive")
		}
		return maxPeriodsPerDayRule{params: p, weight: c.Weight, source: c}, nil
	case models.ConstraintPreferredTimeSlot:
		var p PreferredTimeSlotParams
		if err := decodeParams(c.Params, &p); err != nil {
			return nil, err
		}
		if len(p.Days) == 0 && p.TimeOfDay == "" {
			return nil, fmt.Errorf("days or time_of_day must be set")
		}
		return preferredTimeSlotRule{params: p, weight: c.Weight, source: c}, nil
	case models.ConstraintAvoidTimeSlot:
		var p AvoidTimeSlotParams
		if err := decodeParams(c.Params, &p); err != nil {
			return nil, err
		}
		if len(p.Days) == 0 && p.EndMinute <= p.StartMinute {
			return nil, fmt.Errorf("days or a time window must be set")
		}
		return avoidTimeSlotRule{params: p, weight: c.Weight, source: c}, nil
	case models.ConstraintLabRequired:
		var p LabRequiredParams
		if err := decodeParams(c.Params, &p); err != nil {
			return nil, err
		}
		if len(p.LabDays) == 0 {
			return nil, fmt.Errorf("lab_days must be set")
		}
		return labRequiredRule{params: p, weight: c.Weight, source: c}, nil
	case models.ConstraintNoConsecutiveDifficult:
		return noConsecutiveDifficultRule{weight: c.Weight, source: c}, nil
	default:
		return nil, fmt.Errorf("unknown constraint kind %q", c.Kind)
	}
}

// decodeParams unmarshals the JSONB params bag into a typed struct,
// rejecting unknown fields so typos surface as data errors.
func decodeParams(raw types.JSONText, target any) error {
	var bag map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &bag); err != nil {
			return fmt.Errorf("parse params: %w", err)
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(bag); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

func scopeMatches(c models.Constraint, cand Candidate) bool {
	var target string
	switch c.Scope {
	case models.ScopeTeacher:
		target = cand.Teacher.ID
	case models.ScopeSubject:
		target = cand.Subject.ID
	case models.ScopeClass:
		target = cand.Class.ID
	default:
		return true
	}
	for _, id := range c.ExcludeIDs {
		if id == target {
			return false
		}
	}
	if len(c.IncludeIDs) == 0 {
		return true
	}
	for _, id := range c.IncludeIDs {
		if id == target {
			return true
		}
	}
	return false
}

// --- Rule variants ---

// TeacherUnavailableParams blocks one teacher during a weekly time window.
type TeacherUnavailableParams struct {
	TeacherID   string `mapstructure:"teacher_id"`
	DayOfWeek   int    `mapstructure:"day_of_week"`
	StartMinute int    `mapstructure:"start_minute"`
	EndMinute   int    `mapstructure:"end_minute"`
}

type teacherUnavailableRule struct {
	params TeacherUnavailableParams
	weight int
	source models.Constraint
}

func (r teacherUnavailableRule) Evaluate(c Candidate, _ *Builder) *Violation {
	if c.Teacher.ID != r.params.TeacherID || c.Period.DayOfWeek != r.params.DayOfWeek {
		return nil
	}
	if c.Period.StartMinute >= r.params.EndMinute || c.Period.EndMinute <= r.params.StartMinute {
		return nil
	}
	return r.violation(fmt.Sprintf("teacher %s unavailable on day %d", r.params.TeacherID, r.params.DayOfWeek))
}

func (r teacherUnavailableRule) violation(msg string) *Violation {
	return &Violation{ConstraintID: r.source.ID, Kind: r.source.Kind, Severity: r.source.Severity, Weight: r.weight, Message: msg}
}

// MaxPeriodsPerDayParams caps a teacher's daily committed periods. An empty
// teacher id applies the cap to every teacher.
type MaxPeriodsPerDayParams struct {
	TeacherID string `mapstructure:"teacher_id"`
	Max       int    `mapstructure:"max"`
}

type maxPeriodsPerDayRule struct {
	params MaxPeriodsPerDayParams
	weight int
	source models.Constraint
}

func (r maxPeriodsPerDayRule) Evaluate(c Candidate, b *Builder) *Violation {
	if r.params.TeacherID != "" && c.Teacher.ID != r.params.TeacherID {
		return nil
	}
	if b.TeacherDayLoad(c.Teacher.ID, c.Period.DayOfWeek) < r.params.Max {
		return nil
	}
	return &Violation{
		ConstraintID: r.source.ID,
		Kind:         r.source.Kind,
		Severity:     r.source.Severity,
		Weight:       r.weight,
		Message:      fmt.Sprintf("teacher %s would exceed %d periods on day %d", c.Teacher.ID, r.params.Max, c.Period.DayOfWeek),
	}
}

// PreferredTimeSlotParams marks where a subject should land; violated by
// candidates outside the preferred days or time of day.
type PreferredTimeSlotParams struct {
	SubjectID string `mapstructure:"subject_id"`
	Days      []int  `mapstructure:"days"`
	TimeOfDay string `mapstructure:"time_of_day"`
}

type preferredTimeSlotRule struct {
	params PreferredTimeSlotParams
	weight int
	source models.Constraint
}

func (r preferredTimeSlotRule) Evaluate(c Candidate, _ *Builder) *Violation {
	if r.params.SubjectID != "" && c.Subject.ID != r.params.SubjectID {
		return nil
	}
	if len(r.params.Days) > 0 && !containsInt(r.params.Days, c.Period.DayOfWeek) {
		return r.violation("candidate day outside preferred days")
	}
	if r.params.TimeOfDay != "" && string(c.Period.TimeOfDay()) != r.params.TimeOfDay {
		return r.violation("candidate period outside preferred time of day")
	}
	return nil
}

func (r preferredTimeSlotRule) violation(msg string) *Violation {
	return &Violation{ConstraintID: r.source.ID, Kind: r.source.Kind, Severity: r.source.Severity, Weight: r.weight, Message: msg}
}

// AvoidTimeSlotParams marks days or a weekly time window to keep clear.
type AvoidTimeSlotParams struct {
	Days        []int `mapstructure:"days"`
	StartMinute int   `mapstructure:"start_minute"`
	EndMinute   int   `mapstructure:"end_minute"`
}

type avoidTimeSlotRule struct {
	params AvoidTimeSlotParams
	weight int
	source models.Constraint
}

func (r avoidTimeSlotRule) Evaluate(c Candidate, _ *Builder) *Violation {
	if len(r.params.Days) > 0 && !containsInt(r.params.Days, c.Period.DayOfWeek) {
		return nil
	}
	if r.params.EndMinute > r.params.StartMinute {
		if c.Period.StartMinute >= r.params.EndMinute || c.Period.EndMinute <= r.params.StartMinute {
			return nil
		}
	}
	return &Violation{
		ConstraintID: r.source.ID,
		Kind:         r.source.Kind,
		Severity:     r.source.Severity,
		Weight:       r.weight,
		Message:      "candidate period falls in an avoided slot",
	}
}

// LabRequiredParams restricts lab subjects to the days the lab is available.
type LabRequiredParams struct {
	SubjectID string `mapstructure:"subject_id"`
	LabDays   []int  `mapstructure:"lab_days"`
}

type labRequiredRule struct {
	params LabRequiredParams
	weight int
	source models.Constraint
}

func (r labRequiredRule) Evaluate(c Candidate, _ *Builder) *Violation {
	if r.params.SubjectID != "" && c.Subject.ID != r.params.SubjectID {
		return nil
	}
	if !c.Subject.RequiresLab {
		return nil
	}
	if containsInt(r.params.LabDays, c.Period.DayOfWeek) {
		return nil
	}
	return &Violation{
		ConstraintID: r.source.ID,
		Kind:         r.source.Kind,
		Severity:     r.source.Severity,
		Weight:       r.weight,
		Message:      fmt.Sprintf("lab subject %s cannot run on day %d", c.Subject.Code, c.Period.DayOfWeek),
	}
}

// noConsecutiveDifficultRule penalises placing a high-difficulty subject
// next to another high-difficulty period of the same class.
type noConsecutiveDifficultRule struct {
	weight int
	source models.Constraint
}

func (r noConsecutiveDifficultRule) Evaluate(c Candidate, b *Builder) *Violation {
	if c.Subject.Difficulty != models.DifficultyHigh {
		return nil
	}
	if !b.AdjacentDifficult(c.Class.ID, c.Period.DayOfWeek, c.Period.Index) {
		return nil
	}
	return &Violation{
		ConstraintID: r.source.ID,
		Kind:         r.source.Kind,
		Severity:     r.source.Severity,
		Weight:       r.weight,
		Message:      "high-difficulty subject adjacent to another high-difficulty period",
	}
}

func containsInt(values []int, v int) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
