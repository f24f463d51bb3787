package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/middleware"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/internal/service"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
	"github.com/noah-isme/guarderia-api/pkg/response"
)

type attendanceService interface {
	Identify(ctx context.Context, actor service.Actor, req dto.IdentifyRequest) (*dto.IdentifyResponse, error)
	Register(ctx context.Context, actor service.Actor, req dto.RegisterEventRequest) (*models.AttendanceEvent, error)
	RegisterThirdParty(ctx context.Context, actor service.Actor, req dto.ThirdPartyRequest) (*dto.ThirdPartyEventResponse, error)
	ListThirdParties(ctx context.Context, actor service.Actor, filter models.ThirdPartyFilter) ([]models.ThirdParty, *models.Pagination, error)
	Backfill(ctx context.Context, actor service.Actor, req dto.BackfillRequest) ([]models.AttendanceEvent, error)
	History(ctx context.Context, actor service.Actor, query dto.HistoryQuery) ([]dto.HistoryEntry, error)
	ChildStatus(ctx context.Context, actor service.Actor, childID string, date models.Date) (dto.TodayStatus, error)
}

type presenceService interface {
	Today() models.Date
	AbsentPage(ctx context.Context, query dto.AbsentRosterQuery) ([]models.ChildSummary, *models.Pagination, error)
	ComputeCurrentlyPresent(ctx context.Context, facilityID string, date models.Date) ([]dto.PresentChild, error)
}

// AttendanceHandler exposes door check-in/check-out and presence endpoints.
type AttendanceHandler struct {
	attendance attendanceService
	presence   presenceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceService, presence presenceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, presence: presence}
}

// Identify godoc
// @Summary Identify guardian by document or QR payload
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.IdentifyRequest true "Guardian document"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/identify [post]
func (h *AttendanceHandler) Identify(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	res, err := h.attendance.Identify(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Register godoc
// @Summary Register a check-in or check-out
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.RegisterEventRequest true "Attendance event"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/events [post]
func (h *AttendanceHandler) Register(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RegisterEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	event, err := h.attendance.Register(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// RegisterThirdParty godoc
// @Summary Register a third party and their pickup or drop-off
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ThirdPartyRequest true "Third party and event"
// @Success 201 {object} response.Envelope
// @Router /attendance/third-parties [post]
func (h *AttendanceHandler) RegisterThirdParty(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ThirdPartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	res, err := h.attendance.RegisterThirdParty(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ListThirdParties godoc
// @Summary List third parties of a facility
// @Tags Attendance
// @Produce json
// @Param facilityId query string false "Facility ID"
// @Param search query string false "Name or document"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /third-parties [get]
func (h *AttendanceHandler) ListThirdParties(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 20)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ThirdPartyFilter{
		FacilityID: c.Query("facilityId"),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       page,
		PageSize:   limit,
	}
	items, pagination, err := h.attendance.ListThirdParties(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Backfill godoc
// @Summary Record a full past day for a child
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.BackfillRequest true "Backfill"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/backfill [post]
func (h *AttendanceHandler) Backfill(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	events, err := h.attendance.Backfill(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, events)
}

// ChildStatus godoc
// @Summary Today's status of a child
// @Tags Attendance
// @Produce json
// @Param id path string true "Child ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/children/{id}/status [get]
func (h *AttendanceHandler) ChildStatus(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	childID := strings.TrimSpace(c.Param("id"))
	if childID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "child id is required"))
		return
	}
	date, err := h.dateOrToday(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.attendance.ChildStatus(c.Request.Context(), actor, childID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Absent godoc
// @Summary Active children without events on a date
// @Tags Attendance
// @Produce json
// @Param facilityId query string false "Facility ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance/absent [get]
func (h *AttendanceHandler) Absent(c *gin.Context) {
	facilityID, date, ok := h.facilityAndDate(c)
	if !ok {
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.presence.AbsentPage(c.Request.Context(), dto.AbsentRosterQuery{
		FacilityID: facilityID,
		Date:       date,
		Page:       page,
		PageSize:   limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c), map[string]interface{}{"date": date.String()})
}

// Present godoc
// @Summary Children currently inside the facility
// @Tags Attendance
// @Produce json
// @Param facilityId query string false "Facility ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/present [get]
func (h *AttendanceHandler) Present(c *gin.Context) {
	facilityID, date, ok := h.facilityAndDate(c)
	if !ok {
		return
	}
	items, err := h.presence.ComputeCurrentlyPresent(c.Request.Context(), facilityID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c), map[string]interface{}{"date": date.String(), "count": len(items)})
}

// History godoc
// @Summary Recent events of a child or recorded by a staff member
// @Tags Attendance
// @Produce json
// @Param childId query string false "Child ID"
// @Param recordedBy query string false "Staff user ID"
// @Param days query int false "Days back (default 30)"
// @Success 200 {object} response.Envelope
// @Router /attendance/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	days, err := intQuery(c, "days", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.HistoryQuery{
		ChildID:    strings.TrimSpace(c.Query("childId")),
		RecordedBy: strings.TrimSpace(c.Query("recordedBy")),
		Days:       days,
	}
	if query.ChildID == "" && query.RecordedBy == "" {
		query.RecordedBy = actor.UserID
	}
	entries, err := h.attendance.History(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

func (h *AttendanceHandler) dateOrToday(c *gin.Context) (models.Date, error) {
	date, ok, err := dateQuery(c, "date")
	if err != nil {
		return models.Date{}, err
	}
	if !ok {
		return h.presence.Today(), nil
	}
	return date, nil
}

func (h *AttendanceHandler) facilityAndDate(c *gin.Context) (string, models.Date, bool) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return "", models.Date{}, false
	}
	facilityID, err := service.ResolveFacility(actor, c.Query("facilityId"))
	if err != nil {
		response.Error(c, err)
		return "", models.Date{}, false
	}
	date, err := h.dateOrToday(c)
	if err != nil {
		response.Error(c, err)
		return "", models.Date{}, false
	}
	return facilityID, date, true
}
