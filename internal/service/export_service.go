package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportRecorder interface {
	ObserveExport(format string, success bool)
}

// Artifact status values.
const (
	ExportStatusPending   = "PENDING"
	ExportStatusCompleted = "COMPLETED"
	ExportStatusFailed    = "FAILED"
)

// ExportArtifact is a rendered timetable file held in memory until it
// expires or gets downloaded.
type ExportArtifact struct {
	JobID       string
	TimetableID string
	Format      string
	Status      string
	Filename    string
	ContentType string
	Payload     []byte
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ExportServiceConfig tunes export behaviour.
type ExportServiceConfig struct {
	WorkerConcurrency int
	ArtifactTTL       time.Duration
}

// ExportService renders timetables to CSV or PDF through a background
// worker queue and serves the artifacts from memory.
type ExportService struct {
	timetables timetableStore
	slots      slotStore
	subjects   subjectReader
	classes    classReader
	teachers   teacherReader
	csv        csvRenderer
	pdf        pdfRenderer
	metrics    exportRecorder
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportServiceConfig

	queue *jobs.Queue

	mu        sync.RWMutex
	artifacts map[string]*ExportArtifact
}

// NewExportService wires export dependencies and its worker queue.
func NewExportService(
	timetables timetableStore,
	slots slotStore,
	subjects subjectReader,
	classes classReader,
	teachers teacherReader,
	metrics exportRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportServiceConfig,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 2
	}
	if cfg.ArtifactTTL <= 0 {
		cfg.ArtifactTTL = time.Hour
	}
	s := &ExportService{
		timetables: timetables,
		slots:      slots,
		subjects:   subjects,
		classes:    classes,
		teachers:   teachers,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		artifacts:  make(map[string]*ExportArtifact),
	}
	s.queue = jobs.NewQueue("timetable-export", s.handleJob, jobs.QueueConfig{
		Workers: cfg.WorkerConcurrency,
		Logger:  logger,
	})
	return s
}

// Start begins export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

type exportJobPayload struct {
	JobID       string
	TimetableID string
	Format      string
}

// Enqueue validates the request and queues an artifact render.
func (s *ExportService) Enqueue(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	if _, err := s.timetables.FindByID(ctx, req.TimetableID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load timetable")
	}

	jobID := uuid.NewString()
	now := time.Now().UTC()
	s.mu.Lock()
	s.artifacts[jobID] = &ExportArtifact{
		JobID:       jobID,
		TimetableID: req.TimetableID,
		Format:      req.Format,
		Status:      ExportStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.ArtifactTTL),
	}
	s.mu.Unlock()

	err := s.queue.Enqueue(jobs.Job{
		ID:      jobID,
		Type:    "render",
		Payload: exportJobPayload{JobID: jobID, TimetableID: req.TimetableID, Format: req.Format},
	})
	if err != nil {
		s.mu.Lock()
		delete(s.artifacts, jobID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "queue export job")
	}
	return &dto.ExportJobResponse{JobID: jobID, Status: ExportStatusPending}, nil
}

// Get returns the artifact for a queued job, purging it when expired.
func (s *ExportService) Get(jobID string) (*ExportArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	artifact, ok := s.artifacts[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if time.Now().UTC().After(artifact.ExpiresAt) {
		delete(s.artifacts, jobID)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export artifact expired")
	}
	copied := *artifact
	return &copied, nil
}

func (s *ExportService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportJobPayload)
	if !ok {
		return fmt.Errorf("unexpected export payload %T", job.Payload)
	}

	content, contentType, filename, err := s.render(ctx, payload.TimetableID, payload.Format)

	s.mu.Lock()
	artifact, exists := s.artifacts[payload.JobID]
	if exists {
		if err != nil {
			artifact.Status = ExportStatusFailed
		} else {
			artifact.Status = ExportStatusCompleted
			artifact.Payload = content
			artifact.ContentType = contentType
			artifact.Filename = filename
		}
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveExport(payload.Format, err == nil)
	}
	if err != nil {
		s.logger.Error("export render failed",
			zap.String("job_id", payload.JobID),
			zap.String("timetable_id", payload.TimetableID),
			zap.Error(err),
		)
	}
	return err
}

var dayNames = map[int]string{
	1: "Monday", 2: "Tuesday", 3: "Wednesday", 4: "Thursday",
	5: "Friday", 6: "Saturday", 7: "Sunday",
}

func (s *ExportService) render(ctx context.Context, timetableID, format string) ([]byte, string, string, error) {
	timetable, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		return nil, "", "", fmt.Errorf("load timetable: %w", err)
	}
	slots, err := s.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return nil, "", "", fmt.Errorf("load slots: %w", err)
	}
	subjectNames, classNames, teacherNames, err := s.loadNames(ctx)
	if err != nil {
		return nil, "", "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Class", "Subject", "Teacher", "Kind"},
	}
	for _, slot := range slots {
		kind := "Teaching"
		if slot.IsExam {
			kind = "Exam " + slot.ExamType
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":     dayNames[slot.DayOfWeek],
			"Start":   formatMinute(slot.StartMinute),
			"End":     formatMinute(slot.EndMinute),
			"Class":   nameOrID(classNames, slot.ClassID),
			"Subject": nameOrID(subjectNames, slot.SubjectID),
			"Teacher": nameOrID(teacherNames, slot.TeacherID),
			"Kind":    kind,
		})
	}

	year := strings.ReplaceAll(timetable.AcademicYear, "/", "-")
	base := fmt.Sprintf("timetable-%s-t%d-v%d", year, timetable.Term, timetable.Version)
	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", err
		}
		return payload, "text/csv", base + ".csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, timetable.Name)
		if err != nil {
			return nil, "", "", err
		}
		return payload, "application/pdf", base + ".pdf", nil
	default:
		return nil, "", "", fmt.Errorf("unsupported format %s", format)
	}
}

func (s *ExportService) loadNames(ctx context.Context) (map[string]string, map[string]string, map[string]string, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load subjects: %w", err)
	}
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load classes: %w", err)
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load teachers: %w", err)
	}

	subjectNames := make(map[string]string, len(subjects))
	for _, subject := range subjects {
		subjectNames[subject.ID] = subject.Name
	}
	classNames := make(map[string]string, len(classes))
	for _, class := range classes {
		classNames[class.ID] = class.Name
	}
	teacherNames := make(map[string]string, len(teachers))
	for _, teacher := range teachers {
		teacherNames[teacher.ID] = teacher.FullName
	}
	return subjectNames, classNames, teacherNames, nil
}

func nameOrID(names map[string]string, id string) string {
	if id == "" {
		return ""
	}
	if name, ok := names[id]; ok {
		return name
	}
	return id
}

func formatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
