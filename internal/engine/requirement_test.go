package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestRequirementPriority(t *testing.T) {
	coreHighLab := models.Subject{
		Category:    models.SubjectCategoryCore,
		Difficulty:  models.DifficultyHigh,
		RequiresLab: true,
	}
	assert.Equal(t, 12, requirementPriority(coreHighLab))

	mathMedium := models.Subject{
		Category:   models.SubjectCategoryMathematics,
		Difficulty: models.DifficultyMedium,
	}
	assert.Equal(t, 9, requirementPriority(mathMedium))

	artsLow := models.Subject{
		Category:   models.SubjectCategoryArts,
		Difficulty: models.DifficultyLow,
	}
	assert.Equal(t, 5, requirementPriority(artsLow))
}

func TestDeriveRequirementsExpandsPeriodsPerWeek(t *testing.T) {
	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 3)},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "math")},
	}

	requirements := DeriveRequirements(catalog)
	require.Len(t, requirements, 3)
	for _, req := range requirements {
		assert.Equal(t, "math", req.Subject.ID)
		assert.Equal(t, "10a", req.Class.ID)
		assert.Len(t, req.Teachers, 1)
	}
}

func TestDeriveRequirementsSortsByPriorityDescending(t *testing.T) {
	physics := testSubject("physics", 1)
	physics.Category = models.SubjectCategoryScience
	physics.Difficulty = models.DifficultyHigh
	physics.RequiresLab = true

	art := testSubject("art", 1)
	art.Category = models.SubjectCategoryArts
	art.Difficulty = models.DifficultyLow

	catalog := Catalog{
		Subjects: []models.Subject{art, physics},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "art", "physics")},
	}

	requirements := DeriveRequirements(catalog)
	require.Len(t, requirements, 2)
	assert.Equal(t, "physics", requirements[0].Subject.ID)
	assert.Equal(t, "art", requirements[1].Subject.ID)
	assert.Greater(t, requirements[0].Priority, requirements[1].Priority)
}

func TestDeriveRequirementsSkipsLevelMismatch(t *testing.T) {
	senior := testSubject("calculus", 2)
	senior.EligibleLevels = []string{"12"}

	catalog := Catalog{
		Subjects: []models.Subject{senior},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{testTeacher("t1", "calculus")},
	}

	assert.Empty(t, DeriveRequirements(catalog))
}

func TestDeriveRequirementsSkipsInactiveTeachers(t *testing.T) {
	inactive := testTeacher("t1", "math")
	inactive.Active = false

	catalog := Catalog{
		Subjects: []models.Subject{testSubject("math", 2)},
		Classes:  []models.Class{testClass("10a")},
		Teachers: []models.Teacher{inactive},
	}

	assert.Empty(t, DeriveRequirements(catalog))
}
