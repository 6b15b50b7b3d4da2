package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/engine"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type subjectReader interface {
	List(ctx context.Context) ([]models.Subject, error)
}

type classReader interface {
	List(ctx context.Context) ([]models.Class, error)
}

type teacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type gridReader interface {
	GetByTerm(ctx context.Context, academicYear string, term int) (*models.PeriodGrid, error)
}

type constraintReader interface {
	ListActive(ctx context.Context, academicYear string, term int) ([]models.Constraint, error)
}

type termReader interface {
	GetByYearTerm(ctx context.Context, academicYear string, term int) (*models.Term, error)
}

type timetableStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	ListByTerm(ctx context.Context, academicYear string, term int) ([]models.Timetable, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error
	ArchiveActive(ctx context.Context, exec sqlx.ExtContext, academicYear string, term int, timetableType models.TimetableType) error
}

type slotStore interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
}

type conflictStore interface {
	ReplaceForTimetable(ctx context.Context, exec sqlx.ExtContext, timetableID string, conflicts []models.TimetableConflict) error
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableConflict, error)
}

// TimetableCache abstracts the redis read cache. Nil disables caching.
type TimetableCache interface {
	Get(ctx context.Context, key string, target any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GenerationLocker abstracts the cross-instance advisory lock. Nil falls
// back to the in-process guard only.
type GenerationLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type generationRecorder interface {
	ObserveGeneration(kind string, duration time.Duration, success bool)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// generationGuard serialises runs per (year, term) within this process.
// The redis lock extends the guarantee across instances.
type generationGuard struct {
	mu   sync.Mutex
	busy map[string]bool
}

func newGenerationGuard() *generationGuard {
	return &generationGuard{busy: make(map[string]bool)}
}

func (g *generationGuard) tryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[key] {
		return false
	}
	g.busy[key] = true
	return true
}

func (g *generationGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
}

// TimetableService orchestrates generation runs and timetable lifecycle.
type TimetableService struct {
	subjects    subjectReader
	classes     classReader
	teachers    teacherReader
	grids       gridReader
	constraints constraintReader
	terms       termReader
	timetables  timetableStore
	slots       slotStore
	conflicts   conflictStore
	cache       TimetableCache
	locks       GenerationLocker
	metrics     generationRecorder
	tx          txProvider
	engine      *engine.Engine
	validator   *validator.Validate
	logger      *zap.Logger
	guard       *generationGuard
	cfg         TimetableServiceConfig
}

// TimetableServiceConfig governs generation behaviour.
type TimetableServiceConfig struct {
	LockTTL                    time.Duration
	CacheTTL                   time.Duration
	MaxPeriodsPerDayPerTeacher int
	PreferMorningForDifficult  bool
	AllowBackToBackDifficult   bool
	ExamMaxPerDay              int
	ExamPrioritizeCore         bool
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	subjects subjectReader,
	classes classReader,
	teachers teacherReader,
	grids gridReader,
	constraints constraintReader,
	terms termReader,
	timetables timetableStore,
	slots slotStore,
	conflicts conflictStore,
	cache TimetableCache,
	locks GenerationLocker,
	metrics generationRecorder,
	tx txProvider,
	eng *engine.Engine,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if eng == nil {
		eng = engine.New(logger)
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.MaxPeriodsPerDayPerTeacher <= 0 {
		cfg.MaxPeriodsPerDayPerTeacher = 6
	}
	if cfg.ExamMaxPerDay <= 0 {
		cfg.ExamMaxPerDay = 3
	}
	return &TimetableService{
		subjects:    subjects,
		classes:     classes,
		teachers:    teachers,
		grids:       grids,
		constraints: constraints,
		terms:       terms,
		timetables:  timetables,
		slots:       slots,
		conflicts:   conflicts,
		cache:       cache,
		locks:       locks,
		metrics:     metrics,
		tx:          tx,
		engine:      eng,
		validator:   validate,
		logger:      logger,
		guard:       newGenerationGuard(),
		cfg:         cfg,
	}
}

func generationKey(academicYear string, term int) string {
	return fmt.Sprintf("timetable:generate:%s:%d", academicYear, term)
}

func cacheKey(timetableID string) string {
	return "timetable:detail:" + timetableID
}

// GenerateTeaching runs the full teaching pipeline for a term and persists
// the outcome as a new draft version. Only one run per (year, term) may be
// in flight at a time.
func (s *TimetableService) GenerateTeaching(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}

	key := generationKey(req.AcademicYear, req.Term)
	if !s.guard.tryAcquire(key) {
		return nil, appErrors.ErrGenerationInProgress
	}
	defer s.guard.release(key)

	if s.locks != nil {
		acquired, err := s.locks.Acquire(ctx, key, s.cfg.LockTTL)
		if err != nil {
			s.logger.Warn("generation lock unavailable, continuing with in-process guard", zap.Error(err))
		} else if !acquired {
			return nil, appErrors.ErrGenerationInProgress
		} else {
			defer func() {
				if err := s.locks.Release(context.WithoutCancel(ctx), key); err != nil {
					s.logger.Warn("release generation lock", zap.Error(err))
				}
			}()
		}
	}

	started := time.Now()
	result, catalogErr := s.runTeaching(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveGeneration("teaching", time.Since(started), catalogErr == nil)
	}
	if catalogErr != nil {
		return nil, catalogErr
	}
	return result, nil
}

func (s *TimetableService) runTeaching(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if s.terms != nil {
		if _, err := s.terms.GetByYearTerm(ctx, req.AcademicYear, req.Term); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "academic term not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load term")
		}
	}
	catalog, err := s.loadCatalog(ctx, req.AcademicYear, req.Term)
	if err != nil {
		return nil, err
	}
	constraints, err := s.constraints.ListActive(ctx, req.AcademicYear, req.Term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load constraints")
	}

	opts := engine.Options{
		OptimizeFor:                engine.OptimizeFor(req.OptimizeFor),
		AllowBackToBackDifficult:   s.cfg.AllowBackToBackDifficult,
		MaxPeriodsPerDayPerTeacher: s.cfg.MaxPeriodsPerDayPerTeacher,
		PreferMorningForDifficult:  s.cfg.PreferMorningForDifficult,
	}
	if req.AllowBackToBackDifficult != nil {
		opts.AllowBackToBackDifficult = *req.AllowBackToBackDifficult
	}
	if req.PreferMorningForDifficult != nil {
		opts.PreferMorningForDifficult = *req.PreferMorningForDifficult
	}
	if req.MaxPeriodsPerDayPerTeacher > 0 {
		opts.MaxPeriodsPerDayPerTeacher = req.MaxPeriodsPerDayPerTeacher
	}

	result, err := s.engine.GenerateTeaching(*catalog, constraints, opts)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Teaching %s T%d", req.AcademicYear, req.Term)
	}
	timetable := &models.Timetable{
		Name:         name,
		AcademicYear: req.AcademicYear,
		Term:         req.Term,
		Type:         models.TimetableTypeTeaching,
		Status:       models.TimetableStatusDraft,
	}
	if err := s.persistRun(ctx, timetable, result, opts); err != nil {
		return nil, err
	}

	return &dto.GenerateTimetableResponse{
		Timetable: dto.NewTimetableSummary(*timetable),
		Slots:     dto.NewSlotViews(result.Slots),
		Conflicts: dto.NewConflictViews(result.Conflicts),
		Stats:     dto.NewStatsView(result.Stats),
		Unplaced:  dto.NewUnplacedViews(result.Unplaced),
	}, nil
}

// GenerateExam derives an exam timetable from a stored teaching timetable.
func (s *TimetableService) GenerateExam(ctx context.Context, req dto.GenerateExamRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam request")
	}

	source, err := s.timetables.FindByID(ctx, req.TimetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load timetable")
	}
	if source.Type != models.TimetableTypeTeaching {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam timetables derive from teaching timetables only")
	}

	teachingSlots, err := s.slots.ListByTimetable(ctx, source.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teaching slots")
	}

	catalog, err := s.loadCatalog(ctx, source.AcademicYear, source.Term)
	if err != nil {
		return nil, err
	}

	settings := engine.ExamSettings{
		ExamDays:            req.ExamDays,
		MaxExamsPerDay:      s.cfg.ExamMaxPerDay,
		MinTimeBetweenExams: req.MinTimeBetweenExams,
		PrioritizeCore:      s.cfg.ExamPrioritizeCore,
		ExamType:            req.ExamType,
	}
	if req.MaxExamsPerDay > 0 {
		settings.MaxExamsPerDay = req.MaxExamsPerDay
	}
	if req.PrioritizeCore != nil {
		settings.PrioritizeCore = *req.PrioritizeCore
	}

	started := time.Now()
	result, err := s.engine.GenerateExam(teachingSlots, *catalog, settings)
	if s.metrics != nil {
		s.metrics.ObserveGeneration("exam", time.Since(started), err == nil)
	}
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Exam %s T%d", source.AcademicYear, source.Term)
	}
	timetable := &models.Timetable{
		Name:         name,
		AcademicYear: source.AcademicYear,
		Term:         source.Term,
		Type:         models.TimetableTypeExam,
		Status:       models.TimetableStatusDraft,
	}
	if err := s.persistRun(ctx, timetable, result, engine.Options{}); err != nil {
		return nil, err
	}

	return &dto.GenerateTimetableResponse{
		Timetable: dto.NewTimetableSummary(*timetable),
		Slots:     dto.NewSlotViews(result.Slots),
		Conflicts: dto.NewConflictViews(result.Conflicts),
		Stats:     dto.NewStatsView(result.Stats),
		Unplaced:  dto.NewUnplacedViews(result.Unplaced),
	}, nil
}

// persistRun writes the timetable, its slots and conflicts in one
// transaction, storing run statistics in the timetable meta column.
func (s *TimetableService) persistRun(ctx context.Context, timetable *models.Timetable, result *engine.Result, opts engine.Options) error {
	meta, err := json.Marshal(map[string]any{
		"stats":       result.Stats,
		"unplaced":    result.Unplaced,
		"optimizeFor": opts.OptimizeFor,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode timetable meta")
	}
	timetable.Meta = types.JSONText(meta)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.CreateVersioned(ctx, tx, timetable); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist timetable")
	}
	for i := range result.Slots {
		result.Slots[i].TimetableID = timetable.ID
	}
	if err = s.slots.InsertBatch(ctx, tx, result.Slots); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist slots")
	}
	if err = s.conflicts.ReplaceForTimetable(ctx, tx, timetable.ID, result.Conflicts); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist conflicts")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit transaction")
	}

	s.invalidateTermCache(ctx, timetable.AcademicYear, timetable.Term)
	return nil
}

// List returns every stored version for a term.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableListQuery) ([]dto.TimetableSummary, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid list query")
	}
	timetables, err := s.timetables.ListByTerm(ctx, query.AcademicYear, query.Term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list timetables")
	}
	summaries := make([]dto.TimetableSummary, 0, len(timetables))
	for _, t := range timetables {
		summaries = append(summaries, dto.NewTimetableSummary(t))
	}
	return summaries, nil
}

// Get loads one timetable with its slots, conflicts and stats. Read results
// are cached until the next write for the term.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableDetailResponse, error) {
	if s.cache != nil {
		var cached dto.TimetableDetailResponse
		if err := s.cache.Get(ctx, cacheKey(id), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("timetable cache read failed", zap.Error(err))
		}
	}

	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load timetable")
	}
	slots, err := s.slots.ListByTimetable(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load slots")
	}
	conflicts, err := s.conflicts.ListByTimetable(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load conflicts")
	}

	required := requiredFromMeta(timetable.Meta, len(slots))
	stats := engine.ComputeStats(slots, conflicts, required)

	detail := &dto.TimetableDetailResponse{
		Timetable: dto.NewTimetableSummary(*timetable),
		Slots:     dto.NewSlotViews(slots),
		Conflicts: dto.NewConflictViews(conflicts),
		Stats:     dto.NewStatsView(stats),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(id), detail, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.Error(err))
		}
	}
	return detail, nil
}

// Delete removes a draft timetable. Active timetables must be archived first.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load timetable")
	}
	if timetable.Status == models.TimetableStatusActive {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "active timetable cannot be deleted")
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete timetable")
	}
	s.invalidateTermCache(ctx, timetable.AcademicYear, timetable.Term)
	return nil
}

// Activate promotes a draft and archives the previously active version of
// the same (year, term, type).
func (s *TimetableService) Activate(ctx context.Context, id string) (*dto.TimetableSummary, error) {
	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load timetable")
	}
	if timetable.Status == models.TimetableStatusActive {
		summary := dto.NewTimetableSummary(*timetable)
		return &summary, nil
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.ArchiveActive(ctx, tx, timetable.AcademicYear, timetable.Term, timetable.Type); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "archive active timetable")
	}
	if err = s.timetables.UpdateStatus(ctx, tx, id, models.TimetableStatusActive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "activate timetable")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit transaction")
	}

	timetable.Status = models.TimetableStatusActive
	s.invalidateTermCache(ctx, timetable.AcademicYear, timetable.Term)
	summary := dto.NewTimetableSummary(*timetable)
	return &summary, nil
}

func (s *TimetableService) loadCatalog(ctx context.Context, academicYear string, term int) (*engine.Catalog, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load subjects")
	}
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load classes")
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load teachers")
	}
	grid, err := s.grids.GetByTerm(ctx, academicYear, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load period grid")
	}
	return &engine.Catalog{Subjects: subjects, Classes: classes, Teachers: teachers, Grid: *grid}, nil
}

func (s *TimetableService) invalidateTermCache(ctx context.Context, academicYear string, term int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
		s.logger.Warn("timetable cache invalidation failed",
			zap.String("academic_year", academicYear),
			zap.Int("term", term),
			zap.Error(err),
		)
	}
}

func requiredFromMeta(meta types.JSONText, fallback int) int {
	var decoded struct {
		Stats struct {
			RequiredSlots int `json:"required_slots"`
		} `json:"stats"`
	}
	if len(meta) == 0 {
		return fallback
	}
	if err := json.Unmarshal(meta, &decoded); err != nil || decoded.Stats.RequiredSlots == 0 {
		return fallback
	}
	return decoded.Stats.RequiredSlots
}
