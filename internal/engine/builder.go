package engine

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type timeKey struct {
	Day   int
	Start int
}

type cellKey struct {
	ClassID string
	Day     int
	Index   int
}

// Builder is the explicit accumulator for one generation run. It owns the
// in-progress assignment list exclusively; nothing reads or writes it
// mid-run except the placer loop itself.
type Builder struct {
	subjects map[string]models.Subject

	slots          []models.TimetableSlot
	classBusy      map[string]map[timeKey]bool
	teacherBusy    map[string]map[timeKey]bool
	teacherDayLoad map[string]map[int]int
	cellSubject    map[cellKey]string
}

// NewBuilder constructs an empty accumulator. The subject index feeds
// difficulty lookups for adjacency checks.
func NewBuilder(subjects map[string]models.Subject) *Builder {
	return &Builder{
		subjects:       subjects,
		classBusy:      make(map[string]map[timeKey]bool),
		teacherBusy:    make(map[string]map[timeKey]bool),
		teacherDayLoad: make(map[string]map[int]int),
		cellSubject:    make(map[cellKey]string),
	}
}

// Commit records an assignment. Once committed it is never revisited.
func (b *Builder) Commit(slot models.TimetableSlot) {
	b.slots = append(b.slots, slot)
	key := timeKey{Day: slot.DayOfWeek, Start: slot.StartMinute}

	if b.classBusy[slot.ClassID] == nil {
		b.classBusy[slot.ClassID] = make(map[timeKey]bool)
	}
	b.classBusy[slot.ClassID][key] = true

	if slot.TeacherID != "" {
		if b.teacherBusy[slot.TeacherID] == nil {
			b.teacherBusy[slot.TeacherID] = make(map[timeKey]bool)
		}
		b.teacherBusy[slot.TeacherID][key] = true

		if b.teacherDayLoad[slot.TeacherID] == nil {
			b.teacherDayLoad[slot.TeacherID] = make(map[int]int)
		}
		b.teacherDayLoad[slot.TeacherID][slot.DayOfWeek]++
	}

	b.cellSubject[cellKey{ClassID: slot.ClassID, Day: slot.DayOfWeek, Index: slot.PeriodIndex}] = slot.SubjectID
}

// ClassBusy reports whether the class already holds a slot at (day, start).
func (b *Builder) ClassBusy(classID string, day, startMinute int) bool {
	return b.classBusy[classID][timeKey{Day: day, Start: startMinute}]
}

// TeacherBusy reports whether the teacher already holds a slot at (day, start).
func (b *Builder) TeacherBusy(teacherID string, day, startMinute int) bool {
	return b.teacherBusy[teacherID][timeKey{Day: day, Start: startMinute}]
}

// TeacherDayLoad returns the teacher's committed period count for the day.
func (b *Builder) TeacherDayLoad(teacherID string, day int) int {
	return b.teacherDayLoad[teacherID][day]
}

// AdjacentDifficult reports whether a neighbouring period of the class on
// the same day already holds a high-difficulty subject.
func (b *Builder) AdjacentDifficult(classID string, day, periodIndex int) bool {
	for _, idx := range []int{periodIndex - 1, periodIndex + 1} {
		subjectID, ok := b.cellSubject[cellKey{ClassID: classID, Day: day, Index: idx}]
		if !ok {
			continue
		}
		if b.subjects[subjectID].Difficulty == models.DifficultyHigh {
			return true
		}
	}
	return false
}

// Slots returns the committed assignments in deterministic order: day, then
// start time, then class id.
func (b *Builder) Slots() []models.TimetableSlot {
	slots := make([]models.TimetableSlot, len(b.slots))
	copy(slots, b.slots)
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].DayOfWeek != slots[j].DayOfWeek {
			return slots[i].DayOfWeek < slots[j].DayOfWeek
		}
		if slots[i].StartMinute != slots[j].StartMinute {
			return slots[i].StartMinute < slots[j].StartMinute
		}
		return slots[i].ClassID < slots[j].ClassID
	})
	return slots
}

// Len returns the number of committed slots.
func (b *Builder) Len() int {
	return len(b.slots)
}
