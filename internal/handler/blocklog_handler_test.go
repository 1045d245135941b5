package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/printfleet/printfleet-api/internal/models"
)

type blockEventReaderMock struct {
	limit  int
	events []models.BlockEvent
}

func (m *blockEventReaderMock) RecentBlockEvents(ctx context.Context, limit int) ([]models.BlockEvent, error) {
	m.limit = limit
	return m.events, nil
}

func TestBlockLogHandlerDefaultsLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &blockEventReaderMock{events: []models.BlockEvent{{Reason: models.BlockPlatesLimit}}}
	handler := &BlockLogHandler{service: mockSvc}
	router := gin.New()
	router.GET("/plans/block-log", handler.Recent)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/plans/block-log", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, defaultBlockLogLimit, mockSvc.limit)
	require.Contains(t, w.Body.String(), string(models.BlockPlatesLimit))
}

func TestBlockLogHandlerParsesLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &blockEventReaderMock{}
	handler := &BlockLogHandler{service: mockSvc}
	router := gin.New()
	router.GET("/plans/block-log", handler.Recent)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/plans/block-log?limit=25", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 25, mockSvc.limit)
}
