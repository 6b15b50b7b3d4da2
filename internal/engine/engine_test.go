package engine

import (
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func testGrid(days, periodsPerDay int) models.PeriodGrid {
	grid := models.PeriodGrid{AcademicYear: "2026/2027", Term: 1}
	for day := 1; day <= days; day++ {
		for idx := 0; idx < periodsPerDay; idx++ {
			start := 480 + idx*40
			grid.Periods = append(grid.Periods, models.Period{
				ID:          newPeriodID(day, idx),
				DayOfWeek:   day,
				Index:       idx + 1,
				Type:        models.PeriodTypeTeaching,
				StartMinute: start,
				EndMinute:   start + 40,
			})
		}
	}
	return grid
}

func newPeriodID(day, idx int) string {
	return string(rune('a'+day)) + string(rune('0'+idx))
}

func testSubject(id string, periodsPerWeek int) models.Subject {
	return models.Subject{
		ID:             id,
		Code:           id,
		Name:           id,
		Category:       models.SubjectCategoryCore,
		EligibleLevels: []string{"10"},
		PeriodsPerWeek: periodsPerWeek,
		Difficulty:     models.DifficultyMedium,
	}
}

func testTeacher(id string, subjectIDs ...string) models.Teacher {
	return models.Teacher{ID: id, FullName: id, Active: true, SubjectIDs: subjectIDs}
}

func testClass(id string) models.Class {
	return models.Class{ID: id, Name: id, Level: "10"}
}

func TestGenerateTeachingSimpleFeasible(t *testing.T) {
	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 2)},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "math")},
		Grid:     testGrid(2, 3),
	}

	result, err := New(nil).GenerateTeaching(catalog, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Len(t, result.Slots, 2)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.Unplaced)
	assert.Equal(t, 100, result.Stats.CompletionPercentage)
	assert.Equal(t, 2, result.Stats.RequiredSlots)
	assert.Equal(t, 0, result.Stats.UnresolvedConflicts)
	for _, slot := range result.Slots {
		assert.Equal(t, "t1", slot.TeacherID)
		assert.Equal(t, "10a", slot.ClassID)
		assert.NotEmpty(t, slot.ID)
	}
}

func TestGenerateTeachingNeverDoubleBooks(t *testing.T) {
	// One teacher shared by two classes: every requirement competes for
	// the same person, so the grid must never hold the teacher twice in
	// one (day, start) cell.
	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 3)},
		Classes:  []models.Class{testClass("10a"), testClass("10b")},
		Teachers: []models.Teacher{testTeacher("t1", "math")},
		Grid:     testGrid(5, 4),
	}

	result, err := New(nil).GenerateTeaching(catalog, nil, DefaultOptions())
	require.NoError(t, err)

	seen := make(map[[2]int]string)
	for _, slot := range result.Slots {
		key := [2]int{slot.DayOfWeek, slot.StartMinute}
		if prev, ok := seen[key]; ok {
			assert.NotEqual(t, prev, slot.TeacherID, "teacher double booked at day %d minute %d", slot.DayOfWeek, slot.StartMinute)
		}
		seen[key] = slot.TeacherID
	}
	assert.Empty(t, result.Conflicts)
}

func TestGenerateTeachingOverloadedTeacherLeavesUnplaced(t *testing.T) {
	// Demand exceeds the grid: two periods required, one teaching period
	// available. Infeasible leftovers are reported, never force-placed.
	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 2)},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "math")},
		Grid:     testGrid(1, 1),
	}

	result, err := New(nil).GenerateTeaching(catalog, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Len(t, result.Slots, 1)
	assert.Empty(t, result.Conflicts)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, "math", result.Unplaced[0].SubjectID)
	assert.Equal(t, "10a", result.Unplaced[0].ClassID)
	assert.Equal(t, 1, result.Unplaced[0].Count)
	assert.Equal(t, 50, result.Stats.CompletionPercentage)
}

func TestGenerateTeachingSkipsUnqualifiedPairs(t *testing.T) {
	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 2)},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "biology")},
		Grid:     testGrid(2, 3),
	}

	result, err := New(nil).GenerateTeaching(catalog, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Slots)
	assert.Equal(t, 0, result.Stats.RequiredSlots)
	assert.Equal(t, 100, result.Stats.CompletionPercentage)
}

func TestGenerateTeachingFailsFastOnEmptyCatalog(t *testing.T) {
	eng := New(nil)

	_, err := eng.GenerateTeaching(Catalog{Grid: testGrid(1, 1)}, nil, DefaultOptions())
	assert.Error(t, err)

	_, err = eng.GenerateTeaching(Catalog{
		Subjects: []models.Subject{testSubject("math", 1)},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "math")},
	}, nil, DefaultOptions())
	assert.Error(t, err)
}

func TestPlacerPrefersEarliestSlotOnTie(t *testing.T) {
	// All candidate slots score identically for a low-difficulty subject
	// with no preferences, so the first candidate in grid order wins.
	subject := testSubject("art", 1)
	subject.Category = models.SubjectCategoryArts
	subject.Difficulty = models.DifficultyLow

	catalog := Catalog{
		Subjects: []models.Subject{subject},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "art")},
		Grid:     testGrid(3, 3),
	}

	result, err := New(nil).GenerateTeaching(catalog, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, 1, result.Slots[0].DayOfWeek)
	assert.Equal(t, 480, result.Slots[0].StartMinute)
}

func TestGenerateTeachingPrefersMorningForDifficult(t *testing.T) {
	// Day 1 offers only an afternoon period, day 2 a morning one. The
	// morning bonus must beat grid order for a high-difficulty subject.
	subject := testSubject("physics", 1)
	subject.Difficulty = models.DifficultyHigh

	grid := models.PeriodGrid{AcademicYear: "2026/2027", Term: 1, Periods: []models.Period{
		{ID: "p1", DayOfWeek: 1, Index: 1, Type: models.PeriodTypeTeaching, StartMinute: 800, EndMinute: 840},
		{ID: "p2", DayOfWeek: 2, Index: 1, Type: models.PeriodTypeTeaching, StartMinute: 480, EndMinute: 520},
	}}
	catalog := Catalog{
		Subjects: []models.Subject{subject},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "physics")},
		Grid:     grid,
	}

	result, err := New(nil).GenerateTeaching(catalog, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, 2, result.Slots[0].DayOfWeek)
	assert.Equal(t, 480, result.Slots[0].StartMinute)
}

func TestGenerateTeachingHonoursTeacherUnavailable(t *testing.T) {
	constraint := models.Constraint{
		ID:       "c1",
		Kind:     models.ConstraintTeacherUnavailable,
		Severity: models.SeverityHard,
		Scope:    models.ScopeTeacher,
		Active:   true,
		Params:   types.JSONText(`{"teacher_id":"t1","day_of_week":1,"start_minute":0,"end_minute":1440}`),
	}
	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 1)},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "math")},
		Grid:     testGrid(2, 2),
	}

	result, err := New(nil).GenerateTeaching(catalog, []models.Constraint{constraint}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, 2, result.Slots[0].DayOfWeek)
}

func TestGenerateTeachingFallsBackToAvailableTeacher(t *testing.T) {
	homeroom := "t1"
	class := testClass("10a")
	class.HomeroomTeacherID = &homeroom

	constraint := models.Constraint{
		ID:       "c1",
		Kind:     models.ConstraintTeacherUnavailable,
		Severity: models.SeverityHard,
		Scope:    models.ScopeTeacher,
		Active:   true,
		Params:   types.JSONText(`{"teacher_id":"t1","day_of_week":1,"start_minute":0,"end_minute":1440}`),
	}
	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 1)},
		Classes:  []models.Class{class},
		Teachers: []models.Teacher{testTeacher("t1", "math"), testTeacher("t2", "math")},
		Grid:     testGrid(1, 3),
	}

	// t1 outscores t2 as the homeroom teacher but is blocked all day;
	// the placer must fall back to t2 rather than leave the requirement
	// unscheduled.
	result, err := New(nil).GenerateTeaching(catalog, []models.Constraint{constraint}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, "t2", result.Slots[0].TeacherID)
	assert.Empty(t, result.Unplaced)
}

func TestGenerateTeachingHomeroomTeacherWins(t *testing.T) {
	homeroom := "t2"
	class := testClass("10a")
	class.HomeroomTeacherID = &homeroom

	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 1)},
		Classes:  []models.Class{class},
		Teachers: []models.Teacher{testTeacher("t1", "math"), testTeacher("t2", "math")},
		Grid:     testGrid(1, 2),
	}

	result, err := New(nil).GenerateTeaching(catalog, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, "t2", result.Slots[0].TeacherID)
}

func TestGenerateTeachingRespectsDailyTeacherCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxPeriodsPerDayPerTeacher = 2

	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 4)},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "math")},
		Grid:     testGrid(2, 4),
	}

	result, err := New(nil).GenerateTeaching(catalog, nil, opts)
	require.NoError(t, err)

	perDay := make(map[int]int)
	for _, slot := range result.Slots {
		perDay[slot.DayOfWeek]++
	}
	for day, count := range perDay {
		assert.LessOrEqual(t, count, 2, "teacher cap exceeded on day %d", day)
	}
	assert.Len(t, result.Slots, 4)
}

func TestComputeStats(t *testing.T) {
	slots := []models.TimetableSlot{
		{ID: "s1", TeacherID: "t1"},
		{ID: "s2", TeacherID: "t1"},
		{ID: "s3", TeacherID: "t2"},
	}
	conflicts := []models.TimetableConflict{
		{ID: "c1"},
		{ID: "c2", Resolved: true},
	}

	stats := ComputeStats(slots, conflicts, 9)
	assert.Equal(t, 3, stats.TotalSlots)
	assert.Equal(t, 9, stats.RequiredSlots)
	assert.Equal(t, 1, stats.UnresolvedConflicts)
	assert.Equal(t, 33, stats.CompletionPercentage)
	assert.InDelta(t, 1.5, stats.AverageTeacherLoad, 0.001)
}

func TestComputeStatsZeroRequired(t *testing.T) {
	stats := ComputeStats(nil, nil, 0)
	assert.Equal(t, 100, stats.CompletionPercentage)
	assert.Zero(t, stats.AverageTeacherLoad)
}
