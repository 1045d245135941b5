package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/printfleet/printfleet-api/internal/dto"
	"github.com/printfleet/printfleet-api/internal/models"
	"github.com/printfleet/printfleet-api/internal/service"
	appErrors "github.com/printfleet/printfleet-api/pkg/errors"
	"github.com/printfleet/printfleet-api/pkg/response"
)

type planPreviewResponse struct {
	Mode     string                    `json:"mode"`
	Proposal *dto.GeneratePlanResponse `json:"proposal"`
}

type planGenerator interface {
	Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error)
	Save(ctx context.Context, req dto.SavePlanRequest) (string, error)
	List(ctx context.Context, query dto.PlanQuery) ([]models.Plan, *models.Pagination, error)
	Get(ctx context.Context, planID string) (*dto.PlanDetailResponse, error)
	Delete(ctx context.Context, planID string) error
	Export(ctx context.Context, planID, format string) ([]byte, string, string, error)
}

// PlanHandler exposes the planning endpoints.
type PlanHandler struct {
	service planGenerator
}

// NewPlanHandler constructs the handler.
func NewPlanHandler(svc *service.PlanGeneratorService) *PlanHandler {
	return &PlanHandler{service: svc}
}

// Generate godoc
// @Summary Generate a plan proposal for preview
// @Description Runs one deterministic planning pass over the current factory snapshot. Nothing is persisted until the proposal is saved.
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePlanRequest true "Generate plan payload"
// @Success 200 {object} response.Envelope
// @Router /plans/generate [post]
func (h *PlanHandler) Generate(c *gin.Context) {
	// An empty body means "generate with defaults".
	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, planPreviewResponse{Mode: "preview", Proposal: result}, nil)
}

// Save godoc
// @Summary Save a plan proposal as a new plan version
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.SavePlanRequest true "Save plan payload"
// @Success 201 {object} response.Envelope
// @Router /plans [post]
func (h *PlanHandler) Save(c *gin.Context) {
	var req dto.SavePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	id, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"planId": id})
}

// List godoc
// @Summary List stored plan versions
// @Tags Planner
// @Produce json
// @Param status query string false "Filter by status (DRAFT or PUBLISHED)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	query := dto.PlanQuery{
		Status:   c.Query("status"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "pageSize"),
	}
	plans, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, pagination)
}

// Get godoc
// @Summary Get a stored plan with its cycles
// @Tags Planner
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a draft plan version
// @Tags Planner
// @Param id path string true "Plan ID"
// @Success 204
// @Router /plans/{id} [delete]
func (h *PlanHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a stored plan's cycle table
// @Tags Planner
// @Produce octet-stream
// @Param id path string true "Plan ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200
// @Router /plans/{id}/export [get]
func (h *PlanHandler) Export(c *gin.Context) {
	data, contentType, filename, err := h.service.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}
