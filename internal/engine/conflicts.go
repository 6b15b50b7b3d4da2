package engine

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DetectConflicts scans committed slots for residual double-bookings. The
// scan is wholesale: callers replace the timetable's conflict list with the
// result. It is a pure function, so re-running it on an unchanged slot list
// yields identical output.
func DetectConflicts(slots []models.TimetableSlot) []models.TimetableConflict {
	groups := lo.GroupBy(slots, func(s models.TimetableSlot) timeKey {
		return timeKey{Day: s.DayOfWeek, Start: s.StartMinute}
	})

	keys := lo.Keys(groups)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].Start < keys[j].Start
	})

	var conflicts []models.TimetableConflict
	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		conflicts = append(conflicts, duplicates(group, key, func(s models.TimetableSlot) string { return s.TeacherID },
			models.ConflictTeacherDoubleBooked, "teacher %s booked %d times on day %d at %02d:%02d")...)
		conflicts = append(conflicts, duplicates(group, key, func(s models.TimetableSlot) string { return s.ClassID },
			models.ConflictClassDoubleBooked, "class %s booked %d times on day %d at %02d:%02d")...)
	}
	return conflicts
}

func duplicates(group []models.TimetableSlot, key timeKey, id func(models.TimetableSlot) string, kind models.ConflictKind, format string) []models.TimetableConflict {
	byID := make(map[string][]models.TimetableSlot)
	var order []string
	for _, slot := range group {
		v := id(slot)
		if v == "" {
			continue
		}
		if _, seen := byID[v]; !seen {
			order = append(order, v)
		}
		byID[v] = append(byID[v], slot)
	}

	var conflicts []models.TimetableConflict
	for _, v := range order {
		clashing := byID[v]
		if len(clashing) < 2 {
			continue
		}
		slotIDs := make([]string, 0, len(clashing))
		for _, s := range clashing {
			slotIDs = append(slotIDs, s.ID)
		}
		conflicts = append(conflicts, models.TimetableConflict{
			Kind:        kind,
			Description: fmt.Sprintf(format, v, len(clashing), key.Day, key.Start/60, key.Start%60),
			Severity:    models.ConflictSeverityCritical,
			SlotIDs:     slotIDs,
		})
	}
	return conflicts
}
