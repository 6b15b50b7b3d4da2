package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodGridValidateRejectsOverlap(t *testing.T) {
	grid := PeriodGrid{AcademicYear: "2026/2027", Term: 1, Periods: []Period{
		{ID: "p1", DayOfWeek: 1, Index: 1, Type: PeriodTypeTeaching, StartMinute: 480, EndMinute: 520},
		{ID: "p2", DayOfWeek: 1, Index: 2, Type: PeriodTypeTeaching, StartMinute: 510, EndMinute: 550},
	}}

	err := grid.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlapping periods on day 1")
	assert.Contains(t, err.Error(), "08:30")
}

func TestPeriodGridValidateAllowsTouchingPeriods(t *testing.T) {
	grid := PeriodGrid{AcademicYear: "2026/2027", Term: 1, Periods: []Period{
		{ID: "p1", DayOfWeek: 1, Index: 1, Type: PeriodTypeTeaching, StartMinute: 480, EndMinute: 520},
		{ID: "p2", DayOfWeek: 1, Index: 2, Type: PeriodTypeTeaching, StartMinute: 520, EndMinute: 560},
	}}

	assert.NoError(t, grid.Validate())
}

func TestPeriodGridValidateSameTimeDifferentDays(t *testing.T) {
	grid := PeriodGrid{AcademicYear: "2026/2027", Term: 1, Periods: []Period{
		{ID: "p1", DayOfWeek: 1, Index: 1, Type: PeriodTypeTeaching, StartMinute: 480, EndMinute: 520},
		{ID: "p2", DayOfWeek: 2, Index: 1, Type: PeriodTypeTeaching, StartMinute: 480, EndMinute: 520},
	}}

	assert.NoError(t, grid.Validate())
}

func TestPeriodGridValidateEmpty(t *testing.T) {
	grid := PeriodGrid{AcademicYear: "2026/2027", Term: 1}
	assert.Error(t, grid.Validate())
}

func TestPeriodGridValidateDayRange(t *testing.T) {
	grid := PeriodGrid{Periods: []Period{
		{ID: "p1", DayOfWeek: 8, Index: 1, Type: PeriodTypeTeaching, StartMinute: 480, EndMinute: 520},
	}}
	assert.Error(t, grid.Validate())
}

func TestPeriodGridValidateInvertedInterval(t *testing.T) {
	grid := PeriodGrid{Periods: []Period{
		{ID: "p1", DayOfWeek: 1, Index: 1, Type: PeriodTypeTeaching, StartMinute: 520, EndMinute: 520},
	}}
	assert.Error(t, grid.Validate())
}

func TestTeachingPeriodsFiltersAndSorts(t *testing.T) {
	grid := PeriodGrid{Periods: []Period{
		{ID: "p3", DayOfWeek: 2, Index: 1, Type: PeriodTypeTeaching, StartMinute: 480, EndMinute: 520},
		{ID: "p2", DayOfWeek: 1, Index: 2, Type: PeriodTypeBreak, StartMinute: 520, EndMinute: 540},
		{ID: "p1", DayOfWeek: 1, Index: 3, Type: PeriodTypeTeaching, StartMinute: 540, EndMinute: 580},
		{ID: "p0", DayOfWeek: 1, Index: 1, Type: PeriodTypeTeaching, StartMinute: 480, EndMinute: 520},
	}}

	teaching := grid.TeachingPeriods()
	require.Len(t, teaching, 3)
	assert.Equal(t, "p0", teaching[0].ID)
	assert.Equal(t, "p1", teaching[1].ID)
	assert.Equal(t, "p3", teaching[2].ID)
}

func TestPeriodTimeOfDayBuckets(t *testing.T) {
	assert.Equal(t, TimeOfDayMorning, Period{StartMinute: 480}.TimeOfDay())
	assert.Equal(t, TimeOfDayMorning, Period{StartMinute: 659}.TimeOfDay())
	assert.Equal(t, TimeOfDayMidday, Period{StartMinute: 660}.TimeOfDay())
	assert.Equal(t, TimeOfDayMidday, Period{StartMinute: 779}.TimeOfDay())
	assert.Equal(t, TimeOfDayAfternoon, Period{StartMinute: 780}.TimeOfDay())
}

func TestPeriodIsMorning(t *testing.T) {
	assert.True(t, Period{StartMinute: 719}.IsMorning())
	assert.False(t, Period{StartMinute: 720}.IsMorning())
}
