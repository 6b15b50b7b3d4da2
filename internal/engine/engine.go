package engine

import (
	"math"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Engine runs the greedy constraint-scored timetable heuristic. One
// invocation produces one timetable; there is no internal parallelism and
// no partial-commit mode.
type Engine struct {
	logger *zap.Logger
}

// New constructs the engine.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// UnplacedRequirement reports demand the greedy pass could not satisfy.
// Unplaced requirements are not errors; they only reduce the completion
// percentage.
type UnplacedRequirement struct {
	SubjectID string `json:"subject_id"`
	ClassID   string `json:"class_id"`
	Count     int    `json:"count"`
}

// Result is the outcome of one generation run.
type Result struct {
	Slots     []models.TimetableSlot
	Conflicts []models.TimetableConflict
	Stats     models.TimetableStats
	Unplaced  []UnplacedRequirement
}

// GenerateTeaching runs the full pipeline: validate inputs, compile rules,
// derive requirements, place greedily, detect residual conflicts, compute
// statistics. The run either completes or fails before any placement; there
// is no partially-built output.
func (e *Engine) GenerateTeaching(catalog Catalog, constraints []models.Constraint, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	rules, err := CompileRules(constraints, e.logger)
	if err != nil {
		return nil, err
	}

	requirements := DeriveRequirements(catalog)
	required := len(requirements)

	builder := NewBuilder(catalog.subjectsByID())
	p := &placer{
		periods: catalog.Grid.TeachingPeriods(),
		opts:    opts,
		rules:   rules,
		builder: builder,
	}

	unplacedCount := make(map[[2]string]int)
	var unplacedOrder [][2]string
	for _, req := range requirements {
		if p.place(req) {
			continue
		}
		key := [2]string{req.Subject.ID, req.Class.ID}
		if unplacedCount[key] == 0 {
			unplacedOrder = append(unplacedOrder, key)
		}
		unplacedCount[key]++
	}

	slots := builder.Slots()
	conflicts := DetectConflicts(slots)
	stats := ComputeStats(slots, conflicts, required)

	unplaced := make([]UnplacedRequirement, 0, len(unplacedOrder))
	for _, key := range unplacedOrder {
		unplaced = append(unplaced, UnplacedRequirement{SubjectID: key[0], ClassID: key[1], Count: unplacedCount[key]})
	}

	e.logger.Info("teaching timetable generated",
		zap.Int("required", required),
		zap.Int("placed", len(slots)),
		zap.Int("conflicts", len(conflicts)),
		zap.Int("completion", stats.CompletionPercentage),
	)

	return &Result{Slots: slots, Conflicts: conflicts, Stats: stats, Unplaced: unplaced}, nil
}

// ComputeStats derives timetable bookkeeping from the slot and conflict
// lists. Recomputed wholesale whenever slots change.
func ComputeStats(slots []models.TimetableSlot, conflicts []models.TimetableConflict, required int) models.TimetableStats {
	unresolved := 0
	for _, c := range conflicts {
		if !c.Resolved {
			unresolved++
		}
	}

	completion := 100
	if required > 0 {
		completion = int(math.Round(100 * float64(len(slots)) / float64(required)))
	}

	teachers := lo.Uniq(lo.FilterMap(slots, func(s models.TimetableSlot, _ int) (string, bool) {
		return s.TeacherID, s.TeacherID != ""
	}))
	avgLoad := 0.0
	if len(teachers) > 0 {
		avgLoad = float64(len(slots)) / float64(len(teachers))
	}

	return models.TimetableStats{
		TotalSlots:           len(slots),
		RequiredSlots:        required,
		UnresolvedConflicts:  unresolved,
		CompletionPercentage: completion,
		AverageTeacherLoad:   avgLoad,
	}
}
