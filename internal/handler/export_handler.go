package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableExporter interface {
	Enqueue(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportJobResponse, error)
	Get(jobID string) (*service.ExportArtifact, error)
}

// ExportHandler exposes export job endpoints.
type ExportHandler struct {
	service timetableExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Enqueue godoc
// @Summary Queue a CSV or PDF render of a timetable
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.ExportTimetableRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /timetables/{id}/export [post]
func (h *ExportHandler) Enqueue(c *gin.Context) {
	var req dto.ExportTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	req.TimetableID = c.Param("id")
	job, err := h.service.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Download godoc
// @Summary Download a rendered artifact, or poll its status while pending
// @Tags Exports
// @Produce json
// @Param jobId path string true "Export job ID"
// @Success 200
// @Router /exports/{jobId} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	artifact, err := h.service.Get(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if artifact.Status != service.ExportStatusCompleted {
		response.JSON(c, http.StatusOK, dto.ExportJobResponse{JobID: artifact.JobID, Status: artifact.Status}, nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Payload)
}
