package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/middleware"
	"github.com/noah-isme/guarderia-api/internal/service"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
	"github.com/noah-isme/guarderia-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, actor service.Actor, facilityID string) (*dto.FacilitySummary, error)
	Coordinator(ctx context.Context) (*dto.CoordinatorDashboard, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Today's counters for a facility
// @Tags Dashboard
// @Produce json
// @Param facilityId query string false "Facility ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	summary, err := h.service.Summary(c.Request.Context(), actor, c.Query("facilityId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "generated_ms", time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Coordinator godoc
// @Summary Today's counters across every facility
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/coordinator [get]
func (h *DashboardHandler) Coordinator(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	dashboard, err := h.service.Coordinator(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "facilities", len(dashboard.Facilities))
	middleware.SetMeta(c, "generated_ms", time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.ExtractMeta(c))
}
