package dto

import (
	"github.com/noah-isme/sma-timetable-api/internal/engine"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// GenerateTimetableRequest starts a teaching-timetable run for a term.
type GenerateTimetableRequest struct {
	AcademicYear               string `json:"academicYear" validate:"required"`
	Term                       int    `json:"term" validate:"required,min=1,max=2"`
	Name                       string `json:"name"`
	OptimizeFor                string `json:"optimizeFor" validate:"omitempty,oneof=BALANCED_WORKLOAD TEACHER_PREFERENCES SUBJECT_DISTRIBUTION MINIMIZE_CONFLICTS"`
	AllowBackToBackDifficult   *bool  `json:"allowBackToBackDifficult"`
	MaxPeriodsPerDayPerTeacher int    `json:"maxPeriodsPerDayPerTeacher" validate:"omitempty,min=1,max=12"`
	PreferMorningForDifficult  *bool  `json:"preferMorningForDifficult"`
}

// GenerateExamRequest derives an exam timetable from a teaching timetable.
type GenerateExamRequest struct {
	TimetableID         string `json:"-" validate:"required,uuid"`
	ExamDays            []int  `json:"examDays" validate:"required,min=1,dive,min=1,max=7"`
	MaxExamsPerDay      int    `json:"maxExamsPerDay" validate:"omitempty,min=1,max=10"`
	MinTimeBetweenExams int    `json:"minTimeBetweenExams" validate:"omitempty,min=0"`
	PrioritizeCore      *bool  `json:"prioritizeCore"`
	ExamType            string `json:"examType" validate:"omitempty,oneof=MIDTERM FINAL QUIZ"`
	Name                string `json:"name"`
}

// TimetableSlotView is one committed slot.
type TimetableSlotView struct {
	ID          string `json:"id"`
	ClassID     string `json:"classId"`
	SubjectID   string `json:"subjectId"`
	TeacherID   string `json:"teacherId,omitempty"`
	DayOfWeek   int    `json:"dayOfWeek"`
	PeriodIndex int    `json:"periodIndex"`
	StartMinute int    `json:"startMinute"`
	EndMinute   int    `json:"endMinute"`
	IsExam      bool   `json:"isExam"`
	ExamType    string `json:"examType,omitempty"`
}

// ConflictView is one residual conflict.
type ConflictView struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	SlotIDs     []string `json:"slotIds"`
	Resolved    bool     `json:"resolved"`
}

// StatsView summarises a timetable.
type StatsView struct {
	TotalSlots           int     `json:"totalSlots"`
	RequiredSlots        int     `json:"requiredSlots"`
	UnresolvedConflicts  int     `json:"unresolvedConflicts"`
	CompletionPercentage int     `json:"completionPercentage"`
	AverageTeacherLoad   float64 `json:"averageTeacherLoad"`
}

// UnplacedView reports demand the run could not satisfy.
type UnplacedView struct {
	SubjectID string `json:"subjectId"`
	ClassID   string `json:"classId"`
	Count     int    `json:"count"`
}

// TimetableSummary lists a stored timetable version.
type TimetableSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AcademicYear string `json:"academicYear"`
	Term         int    `json:"term"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Version      int    `json:"version"`
	CreatedAt    string `json:"createdAt"`
}

// GenerateTimetableResponse returns the persisted run outcome.
type GenerateTimetableResponse struct {
	Timetable TimetableSummary    `json:"timetable"`
	Slots     []TimetableSlotView `json:"slots"`
	Conflicts []ConflictView      `json:"conflicts"`
	Stats     StatsView           `json:"stats"`
	Unplaced  []UnplacedView      `json:"unplaced"`
}

// TimetableDetailResponse returns one stored timetable with its slots.
type TimetableDetailResponse struct {
	Timetable TimetableSummary    `json:"timetable"`
	Slots     []TimetableSlotView `json:"slots"`
	Conflicts []ConflictView      `json:"conflicts"`
	Stats     StatsView           `json:"stats"`
}

// TimetableListQuery filters the version list by term.
type TimetableListQuery struct {
	AcademicYear string `form:"academicYear" validate:"required"`
	Term         int    `form:"term" validate:"required,min=1,max=2"`
}

// ExportTimetableRequest queues an artifact render for a timetable.
type ExportTimetableRequest struct {
	TimetableID string `json:"-" validate:"required,uuid"`
	Format      string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse reports the queued artifact.
type ExportJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// NewTimetableSummary maps a model to its wire view.
func NewTimetableSummary(t models.Timetable) TimetableSummary {
	return TimetableSummary{
		ID:           t.ID,
		Name:         t.Name,
		AcademicYear: t.AcademicYear,
		Term:         t.Term,
		Type:         string(t.Type),
		Status:       string(t.Status),
		Version:      t.Version,
		CreatedAt:    t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// NewSlotViews maps committed slots to their wire views.
func NewSlotViews(slots []models.TimetableSlot) []TimetableSlotView {
	views := make([]TimetableSlotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, TimetableSlotView{
			ID:          s.ID,
			ClassID:     s.ClassID,
			SubjectID:   s.SubjectID,
			TeacherID:   s.TeacherID,
			DayOfWeek:   s.DayOfWeek,
			PeriodIndex: s.PeriodIndex,
			StartMinute: s.StartMinute,
			EndMinute:   s.EndMinute,
			IsExam:      s.IsExam,
			ExamType:    s.ExamType,
		})
	}
	return views
}

// NewConflictViews maps residual conflicts to their wire views.
func NewConflictViews(conflicts []models.TimetableConflict) []ConflictView {
	views := make([]ConflictView, 0, len(conflicts))
	for _, c := range conflicts {
		views = append(views, ConflictView{
			ID:          c.ID,
			Kind:        string(c.Kind),
			Description: c.Description,
			Severity:    c.Severity,
			SlotIDs:     c.SlotIDs,
			Resolved:    c.Resolved,
		})
	}
	return views
}

// NewStatsView maps timetable statistics to the wire view.
func NewStatsView(s models.TimetableStats) StatsView {
	return StatsView{
		TotalSlots:           s.TotalSlots,
		RequiredSlots:        s.RequiredSlots,
		UnresolvedConflicts:  s.UnresolvedConflicts,
		CompletionPercentage: s.CompletionPercentage,
		AverageTeacherLoad:   s.AverageTeacherLoad,
	}
}

// NewUnplacedViews maps unsatisfied demand to the wire view.
func NewUnplacedViews(unplaced []engine.UnplacedRequirement) []UnplacedView {
	views := make([]UnplacedView, 0, len(unplaced))
	for _, u := range unplaced {
		views = append(views, UnplacedView{SubjectID: u.SubjectID, ClassID: u.ClassID, Count: u.Count})
	}
	return views
}
