package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestDetectConflictsTeacherDoubleBooked(t *testing.T) {
	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "10a", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480},
		{ID: "s2", ClassID: "10b", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480},
	}

	conflicts := DetectConflicts(slots)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTeacherDoubleBooked, conflicts[0].Kind)
	assert.Equal(t, models.ConflictSeverityCritical, conflicts[0].Severity)
	assert.ElementsMatch(t, []string{"s1", "s2"}, []string(conflicts[0].SlotIDs))
}

func TestDetectConflictsClassDoubleBooked(t *testing.T) {
	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "10a", TeacherID: "t1", DayOfWeek: 2, StartMinute: 520},
		{ID: "s2", ClassID: "10a", TeacherID: "t2", DayOfWeek: 2, StartMinute: 520},
	}

	conflicts := DetectConflicts(slots)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictClassDoubleBooked, conflicts[0].Kind)
}

func TestDetectConflictsDifferentTimesAreClean(t *testing.T) {
	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "10a", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480},
		{ID: "s2", ClassID: "10a", TeacherID: "t1", DayOfWeek: 1, StartMinute: 520},
		{ID: "s3", ClassID: "10a", TeacherID: "t1", DayOfWeek: 2, StartMinute: 480},
	}

	assert.Empty(t, DetectConflicts(slots))
}

func TestDetectConflictsIgnoresEmptyTeacher(t *testing.T) {
	// Exam slots carry no teacher; two of them at the same time must not
	// produce a teacher conflict.
	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "10a", DayOfWeek: 1, StartMinute: 480, IsExam: true},
		{ID: "s2", ClassID: "10b", DayOfWeek: 1, StartMinute: 480, IsExam: true},
	}

	assert.Empty(t, DetectConflicts(slots))
}

func TestDetectConflictsIsIdempotent(t *testing.T) {
	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "10a", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480},
		{ID: "s2", ClassID: "10b", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480},
		{ID: "s3", ClassID: "10b", TeacherID: "t2", DayOfWeek: 3, StartMinute: 600},
	}

	first := DetectConflicts(slots)
	second := DetectConflicts(slots)
	assert.Equal(t, first, second)
}

func TestDetectConflictsTripleBookingReportedOnce(t *testing.T) {
	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "10a", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480},
		{ID: "s2", ClassID: "10b", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480},
		{ID: "s3", ClassID: "10c", TeacherID: "t1", DayOfWeek: 1, StartMinute: 480},
	}

	conflicts := DetectConflicts(slots)
	require.Len(t, conflicts, 1)
	assert.Len(t, conflicts[0].SlotIDs, 3)
}
