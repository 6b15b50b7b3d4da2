package engine

import (
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestCompileRulesSkipsMalformedSoft(t *testing.T) {
	constraints := []models.Constraint{
		{
			ID:       "bad-soft",
			Kind:     models.ConstraintTeacherUnavailable,
			Severity: models.SeveritySoft,
			Active:   true,
			Params:   types.JSONText(`{"teacher_id":"t1","day_of_week":9}`),
		},
		{
			ID:       "good-soft",
			Kind:     models.ConstraintPreferredTimeSlot,
			Severity: models.SeveritySoft,
			Weight:   2,
			Active:   true,
			Params:   types.JSONText(`{"subject_id":"math","time_of_day":"MORNING"}`),
		},
	}

	rs, err := CompileRules(constraints, nil)
	require.NoError(t, err)
	assert.Empty(t, rs.Hard)
	assert.Len(t, rs.Soft, 1)
	assert.Equal(t, "good-soft", rs.Soft[0].Source.ID)
}

func TestCompileRulesRejectsMalformedHard(t *testing.T) {
	constraints := []models.Constraint{{
		ID:       "bad-hard",
		Kind:     models.ConstraintMaxPeriodsPerDay,
		Severity: models.SeverityHard,
		Active:   true,
		Params:   types.JSONText(`{"max":0}`),
	}}

	_, err := CompileRules(constraints, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-hard")
}

func TestCompileRulesRejectsUnknownParamFields(t *testing.T) {
	constraints := []models.Constraint{{
		ID:       "typo",
		Kind:     models.ConstraintTeacherUnavailable,
		Severity: models.SeverityHard,
		Active:   true,
		Params:   types.JSONText(`{"teacher_id":"t1","day_of_week":1,"start_minute":0,"end_minute":60,"dayz":[1]}`),
	}}

	_, err := CompileRules(constraints, nil)
	assert.Error(t, err)
}

func TestCompileRulesIgnoresInactive(t *testing.T) {
	constraints := []models.Constraint{{
		ID:       "off",
		Kind:     models.ConstraintNoConsecutiveDifficult,
		Severity: models.SeverityHard,
		Active:   false,
	}}

	rs, err := CompileRules(constraints, nil)
	require.NoError(t, err)
	assert.Empty(t, rs.Hard)
	assert.Empty(t, rs.Soft)
}

func TestRuleSetSoftPenaltyWeighting(t *testing.T) {
	constraints := []models.Constraint{{
		ID:       "avoid-friday-afternoon",
		Kind:     models.ConstraintAvoidTimeSlot,
		Severity: models.SeveritySoft,
		Weight:   4,
		Active:   true,
		Params:   types.JSONText(`{"days":[5]}`),
	}}
	rs, err := CompileRules(constraints, nil)
	require.NoError(t, err)

	builder := NewBuilder(nil)
	onFriday := Candidate{Period: models.Period{DayOfWeek: 5, StartMinute: 800, EndMinute: 840}}
	offFriday := Candidate{Period: models.Period{DayOfWeek: 1, StartMinute: 800, EndMinute: 840}}

	assert.Equal(t, 12, rs.SoftPenalty(onFriday, builder))
	assert.Equal(t, 0, rs.SoftPenalty(offFriday, builder))
}

func TestTeacherUnavailableRuleWindow(t *testing.T) {
	constraints := []models.Constraint{{
		ID:       "t1-monday-morning",
		Kind:     models.ConstraintTeacherUnavailable,
		Severity: models.SeverityHard,
		Active:   true,
		Params:   types.JSONText(`{"teacher_id":"t1","day_of_week":1,"start_minute":480,"end_minute":600}`),
	}}
	rs, err := CompileRules(constraints, nil)
	require.NoError(t, err)

	builder := NewBuilder(nil)
	blocked := Candidate{
		Teacher: models.Teacher{ID: "t1"},
		Period:  models.Period{DayOfWeek: 1, StartMinute: 480, EndMinute: 520},
	}
	outsideWindow := Candidate{
		Teacher: models.Teacher{ID: "t1"},
		Period:  models.Period{DayOfWeek: 1, StartMinute: 600, EndMinute: 640},
	}
	otherTeacher := Candidate{
		Teacher: models.Teacher{ID: "t2"},
		Period:  models.Period{DayOfWeek: 1, StartMinute: 480, EndMinute: 520},
	}

	assert.NotNil(t, rs.Violates(blocked, builder))
	assert.Nil(t, rs.Violates(outsideWindow, builder))
	assert.Nil(t, rs.Violates(otherTeacher, builder))
}

func TestMaxPeriodsPerDayRuleUsesCommittedLoad(t *testing.T) {
	constraints := []models.Constraint{{
		ID:       "cap-2",
		Kind:     models.ConstraintMaxPeriodsPerDay,
		Severity: models.SeverityHard,
		Active:   true,
		Params:   types.JSONText(`{"max":2}`),
	}}
	rs, err := CompileRules(constraints, nil)
	require.NoError(t, err)

	builder := NewBuilder(nil)
	builder.Commit(models.TimetableSlot{ID: "s1", ClassID: "10a", TeacherID: "t1", DayOfWeek: 1, PeriodIndex: 1, StartMinute: 480})
	builder.Commit(models.TimetableSlot{ID: "s2", ClassID: "10a", TeacherID: "t1", DayOfWeek: 1, PeriodIndex: 2, StartMinute: 520})

	atCap := Candidate{
		Teacher: models.Teacher{ID: "t1"},
		Period:  models.Period{DayOfWeek: 1, StartMinute: 560, EndMinute: 600},
	}
	otherDay := Candidate{
		Teacher: models.Teacher{ID: "t1"},
		Period:  models.Period{DayOfWeek: 2, StartMinute: 480, EndMinute: 520},
	}

	assert.NotNil(t, rs.Violates(atCap, builder))
	assert.Nil(t, rs.Violates(otherDay, builder))
}

func TestScopeMatchesIncludeExclude(t *testing.T) {
	base := models.Constraint{Scope: models.ScopeTeacher}
	cand := Candidate{Teacher: models.Teacher{ID: "t1"}}

	assert.True(t, scopeMatches(base, cand))

	included := base
	included.IncludeIDs = []string{"t1"}
	assert.True(t, scopeMatches(included, cand))

	notIncluded := base
	notIncluded.IncludeIDs = []string{"t2"}
	assert.False(t, scopeMatches(notIncluded, cand))

	excluded := base
	excluded.ExcludeIDs = []string{"t1"}
	assert.False(t, scopeMatches(excluded, cand))
}

func TestLabRequiredRuleOnlyBindsLabSubjects(t *testing.T) {
	constraints := []models.Constraint{{
		ID:       "lab-days",
		Kind:     models.ConstraintLabRequired,
		Severity: models.SeverityHard,
		Active:   true,
		Params:   types.JSONText(`{"lab_days":[2,4]}`),
	}}
	rs, err := CompileRules(constraints, nil)
	require.NoError(t, err)

	builder := NewBuilder(nil)
	labSubject := models.Subject{ID: "chem", Code: "CHEM", RequiresLab: true}
	plainSubject := models.Subject{ID: "hist", Code: "HIST"}

	offLabDay := Candidate{Subject: labSubject, Period: models.Period{DayOfWeek: 1}}
	onLabDay := Candidate{Subject: labSubject, Period: models.Period{DayOfWeek: 2}}
	plainOffDay := Candidate{Subject: plainSubject, Period: models.Period{DayOfWeek: 1}}

	assert.NotNil(t, rs.Violates(offLabDay, builder))
	assert.Nil(t, rs.Violates(onLabDay, builder))
	assert.Nil(t, rs.Violates(plainOffDay, builder))
}
