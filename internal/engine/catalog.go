package engine

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Catalog is the read-only snapshot a generation run operates on. The engine
// never reaches out to a database; callers load the snapshot and hand it in.
type Catalog struct {
	Subjects []models.Subject
	Classes  []models.Class
	Teachers []models.Teacher
	Grid     models.PeriodGrid
}

// Validate fails fast on missing catalog data or a malformed grid, before
// any placement begins.
func (c Catalog) Validate() error {
	if len(c.Subjects) == 0 {
		return fmt.Errorf("catalog has no subjects")
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("catalog has no classes")
	}
	if len(c.Teachers) == 0 {
		return fmt.Errorf("catalog has no teachers")
	}
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if len(c.Grid.TeachingPeriods()) == 0 {
		return fmt.Errorf("period grid has no teaching periods")
	}
	return nil
}

func (c Catalog) subjectsByID() map[string]models.Subject {
	m := make(map[string]models.Subject, len(c.Subjects))
	for _, s := range c.Subjects {
		m[s.ID] = s
	}
	return m
}
