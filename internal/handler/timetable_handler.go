package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableGenerator interface {
	GenerateTeaching(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GenerateExam(ctx context.Context, req dto.GenerateExamRequest) (*dto.GenerateTimetableResponse, error)
	List(ctx context.Context, query dto.TimetableListQuery) ([]dto.TimetableSummary, error)
	Get(ctx context.Context, id string) (*dto.TimetableDetailResponse, error)
	Delete(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) (*dto.TimetableSummary, error)
}

// TimetableHandler exposes timetable generation and lifecycle endpoints.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a teaching timetable for a term
// @Description Runs the greedy constraint-scored generator and persists the outcome as a new draft version. Returns 409 while another run for the same term is in flight.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.GenerateTeaching(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GenerateExam godoc
// @Summary Derive an exam timetable from a teaching timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Teaching timetable ID"
// @Param payload body dto.GenerateExamRequest true "Exam generation payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/{id}/exams [post]
func (h *TimetableHandler) GenerateExam(c *gin.Context) {
	var req dto.GenerateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}
	req.TimetableID = c.Param("id")
	result, err := h.service.GenerateExam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List timetable versions for a term
// @Tags Timetables
// @Produce json
// @Param academicYear query string true "Academic year, e.g. 2026/2027"
// @Param term query int true "Term number"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	term, _ := strconv.Atoi(c.Query("term"))
	query := dto.TimetableListQuery{
		AcademicYear: c.Query("academicYear"),
		Term:         term,
	}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a timetable with its slots, conflicts and stats
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Slots godoc
// @Summary List the slots of a timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/slots [get]
func (h *TimetableHandler) Slots(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Slots, nil)
}

// Delete godoc
// @Summary Delete a non-active timetable version
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activate godoc
// @Summary Activate a timetable version, archiving the previous active one
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/activate [post]
func (h *TimetableHandler) Activate(c *gin.Context) {
	result, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
