package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/complaint-desk-api/internal/dto"
	"github.com/campushub/complaint-desk-api/internal/service"
	"github.com/campushub/complaint-desk-api/pkg/response"
)

type statsService interface {
	Dashboard(ctx context.Context, actor service.Actor) (*dto.ComplaintStats, error)
}

// StatsHandler exposes the dashboard aggregates.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler builds a new handler.
func NewStatsHandler(service statsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Dashboard godoc
// @Summary Complaint statistics scoped to the caller's role
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /stats/dashboard [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	stats, err := h.service.Dashboard(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
