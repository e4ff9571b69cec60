package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-pos-api/internal/service"
	"github.com/noah-isme/studio-pos-api/pkg/response"
)

// DashboardHandler serves the payment status board.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Board godoc
// @Summary Payment status board
// @Description Every active student classified by cycle status, most urgent first
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/board [get]
func (h *DashboardHandler) Board(c *gin.Context) {
	board, err := h.dashboard.Board(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}
