package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/printfleet/printfleet-api/internal/models"
	"github.com/printfleet/printfleet-api/internal/service"
	appErrors "github.com/printfleet/printfleet-api/pkg/errors"
	"github.com/printfleet/printfleet-api/pkg/response"
)

type planExporter interface {
	Enqueue(ctx context.Context, planID, format string) (*models.ExportJob, error)
	Job(id string) (*models.ExportJob, bool)
	OpenDownload(jobID, token string) (*os.File, string, string, error)
}

// ExportHandler exposes the queued plan export endpoints.
type ExportHandler struct {
	service planExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.PlanExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Enqueue godoc
// @Summary Queue a background export of a stored plan
// @Description Returns the job immediately; poll the job endpoint for the signed download link.
// @Tags Planner
// @Produce json
// @Param id path string true "Plan ID"
// @Param format query string false "csv (default) or pdf"
// @Success 202 {object} response.Envelope
// @Router /plans/{id}/export [post]
func (h *ExportHandler) Enqueue(c *gin.Context) {
	job, err := h.service.Enqueue(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Job godoc
// @Summary Get the state of a queued plan export
// @Tags Planner
// @Produce json
// @Param jobId path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /plans/exports/{jobId} [get]
func (h *ExportHandler) Job(c *gin.Context) {
	job, ok := h.service.Job(c.Param("jobId"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export job not found"))
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export artifact
// @Tags Planner
// @Produce octet-stream
// @Param jobId path string true "Export job ID"
// @Param token query string true "Signed download token"
// @Success 200
// @Router /plans/exports/{jobId}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, contentType, filename, err := h.service.OpenDownload(c.Param("jobId"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export artifact"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
