package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/pkg/response"
)

type reconciliationService interface {
	Run(ctx context.Context) dto.ReconciliationResult
	RunFor(ctx context.Context, date models.Date) dto.ReconciliationResult
}

// ReconciliationHandler lets an external scheduler trigger the daily closing.
type ReconciliationHandler struct {
	service reconciliationService
}

// NewReconciliationHandler constructs the handler.
func NewReconciliationHandler(service reconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

// CloseDailyAttendance godoc
// @Summary Close open entries of the day
// @Description Writes one automatic EXIT per child with an unmatched ENTRY. Requires X-Job-Token.
// @Tags Jobs
// @Produce json
// @Param date query string false "Date to close (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.ReconciliationResult
// @Failure 500 {object} dto.ReconciliationResult
// @Router /jobs/close-daily-attendance [post]
func (h *ReconciliationHandler) CloseDailyAttendance(c *gin.Context) {
	date, ok, err := dateQuery(c, "date")
	if err != nil {
		response.Flat(c, http.StatusBadRequest, dto.ReconciliationResult{Success: false, Error: err.Error()})
		return
	}

	var result dto.ReconciliationResult
	if ok {
		result = h.service.RunFor(c.Request.Context(), date)
	} else {
		result = h.service.Run(c.Request.Context())
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	response.Flat(c, status, result)
}
