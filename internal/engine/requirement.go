package engine

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Requirement is one atomic need for "this subject taught to this class for
// one period". Requirements are ephemeral: recomputed at the start of each
// generation run, never persisted.
type Requirement struct {
	Subject  models.Subject
	Class    models.Class
	Teachers []models.Teacher
	Priority int
}

// requirementPriority prices a (subject, class) pair so core, difficult and
// lab subjects are placed while the grid is least constrained.
func requirementPriority(subject models.Subject) int {
	priority := 5
	if subject.Category == models.SubjectCategoryCore || subject.Category == models.SubjectCategoryMathematics {
		priority += 3
	}
	priority += subject.DifficultyRank()
	if subject.RequiresLab {
		priority += 2
	}
	return priority
}

// DeriveRequirements expands (subject x eligible class x periods-per-week)
// into atomic requirements sorted by descending priority. Pairs with no
// active qualified teacher are skipped silently; they surface only through
// the completion percentage.
func DeriveRequirements(catalog Catalog) []Requirement {
	var requirements []Requirement
	for _, subject := range catalog.Subjects {
		for _, class := range catalog.Classes {
			if !subject.AppliesToLevel(class.Level) {
				continue
			}
			eligible := eligibleTeachers(catalog.Teachers, subject.ID)
			if len(eligible) == 0 {
				continue
			}
			priority := requirementPriority(subject)
			for i := 0; i < subject.PeriodsPerWeek; i++ {
				requirements = append(requirements, Requirement{
					Subject:  subject,
					Class:    class,
					Teachers: eligible,
					Priority: priority,
				})
			}
		}
	}
	sort.SliceStable(requirements, func(i, j int) bool {
		return requirements[i].Priority > requirements[j].Priority
	})
	return requirements
}

func eligibleTeachers(teachers []models.Teacher, subjectID string) []models.Teacher {
	var eligible []models.Teacher
	for _, t := range teachers {
		if t.Active && t.QualifiedFor(subjectID) {
			eligible = append(eligible, t)
		}
	}
	return eligible
}
