package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/printfleet/printfleet-api/internal/models"
	"github.com/printfleet/printfleet-api/internal/service"
	"github.com/printfleet/printfleet-api/pkg/response"
)

const defaultBlockLogLimit = 100

type blockEventReader interface {
	RecentBlockEvents(ctx context.Context, limit int) ([]models.BlockEvent, error)
}

// BlockLogHandler exposes the planner's diagnostic block-event stream.
type BlockLogHandler struct {
	service blockEventReader
}

// NewBlockLogHandler constructs the handler.
func NewBlockLogHandler(svc *service.PlanGeneratorService) *BlockLogHandler {
	return &BlockLogHandler{service: svc}
}

// Recent godoc
// @Summary List recent planner block events, newest first
// @Tags Planner
// @Produce json
// @Param limit query int false "Maximum events to return"
// @Success 200 {object} response.Envelope
// @Router /plans/block-log [get]
func (h *BlockLogHandler) Recent(c *gin.Context) {
	limit := defaultBlockLogLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	events, err := h.service.RecentBlockEvents(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
