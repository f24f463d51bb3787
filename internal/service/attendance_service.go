package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/pkg/clock"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

type attendanceEventWriter interface {
	Append(ctx context.Context, draft models.AttendanceEventDraft) (*models.AttendanceEvent, error)
	BulkAppend(ctx context.Context, drafts []models.AttendanceEventDraft) ([]models.AttendanceEvent, error)
	AppendWithThirdParty(ctx context.Context, tp *models.ThirdParty, draft models.AttendanceEventDraft) (*models.AttendanceEvent, error)
}

type attendanceHistoryReader interface {
	History(ctx context.Context, filter models.HistoryFilter) ([]models.AttendanceEventView, error)
}

type childFinder interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

type guardianDirectory interface {
	FindByDocument(ctx context.Context, document, facilityID string) (*models.Guardian, error)
	ChildrenOf(ctx context.Context, guardianID, facilityID string) ([]models.GuardianChild, error)
	IsLinked(ctx context.Context, guardianID, childID string) (bool, error)
}

type thirdPartyStore interface {
	FindByID(ctx context.Context, id string) (*models.ThirdParty, error)
	List(ctx context.Context, filter models.ThirdPartyFilter) ([]models.ThirdParty, int, error)
}

// Actor is the authenticated staff member performing an operation.
type Actor struct {
	UserID     string
	Role       models.UserRole
	FacilityID string
}

// IsCoordinator reports whether the actor may work across facilities.
func (a Actor) IsCoordinator() bool {
	return a.Role == models.RoleCoordinator
}

// AttendanceServiceConfig carries attendance tunables. Nil backfill times
// fall back to 08:00:00 and 15:00:00.
type AttendanceServiceConfig struct {
	BackfillEntryTime  *models.ClockTime
	BackfillExitTime   *models.ClockTime
	HistoryDefaultDays int
}

// AttendanceService registers check-ins and check-outs at the door.
type AttendanceService struct {
	events       attendanceEventWriter
	history      attendanceHistoryReader
	children     childFinder
	guardians    guardianDirectory
	thirdParties thirdPartyStore
	presence     *PresenceService
	metrics      *MetricsService
	calendar     *clock.Calendar
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          AttendanceServiceConfig
	backfillIn   models.ClockTime
	backfillOut  models.ClockTime
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Events       attendanceEventWriter
	History      attendanceHistoryReader
	Children     childFinder
	Guardians    guardianDirectory
	ThirdParties thirdPartyStore
	Presence     *PresenceService
	Metrics      *MetricsService
	Calendar     *clock.Calendar
	Validator    *validator.Validate
	Logger       *zap.Logger
	Config       AttendanceServiceConfig
}

// NewAttendanceService constructs the registration service.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	calendar := params.Calendar
	if calendar == nil {
		calendar = clock.MustNew(clock.DefaultTimezone)
	}
	cfg := params.Config
	if cfg.HistoryDefaultDays <= 0 {
		cfg.HistoryDefaultDays = 30
	}
	return &AttendanceService{
		events:       params.Events,
		history:      params.History,
		children:     params.Children,
		guardians:    params.Guardians,
		thirdParties: params.ThirdParties,
		presence:     params.Presence,
		metrics:      params.Metrics,
		calendar:     calendar,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		backfillIn:   models.ClockOr(cfg.BackfillEntryTime, models.NewClockTime(8, 0, 0)),
		backfillOut:  models.ClockOr(cfg.BackfillExitTime, models.NewClockTime(15, 0, 0)),
	}
}

// ResolveFacility picks the facility an actor may query. Only coordinators may
// look at a facility other than their own.
func ResolveFacility(actor Actor, requested string) (string, error) {
	facilityID := strings.TrimSpace(requested)
	if facilityID == "" {
		facilityID = actor.FacilityID
	}
	if facilityID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "facilityId is required")
	}
	if facilityID != actor.FacilityID && !actor.IsCoordinator() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot access another facility")
	}
	return facilityID, nil
}

// Identify resolves a guardian by document within the actor's facility and
// lists their active children with today's status.
func (s *AttendanceService) Identify(ctx context.Context, actor Actor, req dto.IdentifyRequest) (*dto.IdentifyResponse, error) {
	req.Document = strings.TrimSpace(req.Document)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid document number")
	}

	facilityID, err := ResolveFacility(actor, req.FacilityID)
	if err != nil {
		return nil, err
	}

	guardian, err := s.guardians.FindByDocument(ctx, req.Document, facilityID)
	if err != nil {
		return nil, lookupError(err, "guardian not found", "failed to load guardian")
	}
	children, err := s.guardians.ChildrenOf(ctx, guardian.ID, facilityID)
	if err != nil {
		return nil, storeError(err, "failed to load guardian children")
	}

	today := s.presence.Today()
	resp := &dto.IdentifyResponse{Guardian: *guardian, Children: make([]dto.IdentifiedChild, 0, len(children))}
	for _, child := range children {
		status, err := s.presence.ComputeTodayStatus(ctx, child.ID, today)
		if err != nil {
			return nil, err
		}
		resp.Children = append(resp.Children, dto.IdentifiedChild{GuardianChild: child, Status: status})
	}
	return resp, nil
}

// Register appends an ENTRY or EXIT for today after the status pre-check.
// The check and the insert are not atomic: two concurrent registrations for
// the same child can both pass and both insert.
func (s *AttendanceService) Register(ctx context.Context, actor Actor, req dto.RegisterEventRequest) (*models.AttendanceEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}

	child, err := s.loadChildFor(ctx, actor, req.ChildID)
	if err != nil {
		return nil, err
	}

	switch {
	case req.GuardianID != nil:
		linked, err := s.guardians.IsLinked(ctx, *req.GuardianID, child.ID)
		if err != nil {
			return nil, storeError(err, "failed to verify guardian")
		}
		if !linked {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "guardian is not authorized for this child")
		}
	case req.ThirdPartyID != nil:
		if _, err := s.thirdParties.FindByID(ctx, *req.ThirdPartyID); err != nil {
			return nil, lookupError(err, "third party not found", "failed to load third party")
		}
	}

	now := s.calendar.Now()
	if err := s.precheck(ctx, child.ID, models.DateFrom(s.calendar.DateOf(now)), req.EventType); err != nil {
		return nil, err
	}
	return s.appendAt(ctx, now, actor, child, req.EventType, req.GuardianID, req.ThirdPartyID, req.Notes, req.Observations)
}

// ChildStatus reports what a child may do next on date. Inactive children
// can still be read; children of another facility cannot.
func (s *AttendanceService) ChildStatus(ctx context.Context, actor Actor, childID string, date models.Date) (dto.TodayStatus, error) {
	child, err := s.children.FindByID(ctx, strings.TrimSpace(childID))
	if err != nil {
		return dto.TodayStatus{}, lookupError(err, "child not found", "failed to load child")
	}
	if err := checkChildFacility(actor, child); err != nil {
		return dto.TodayStatus{}, err
	}
	return s.presence.ComputeTodayStatus(ctx, child.ID, date)
}

// RegisterThirdParty records an ad hoc pickup person and their event for a child.
func (s *AttendanceService) RegisterThirdParty(ctx context.Context, actor Actor, req dto.ThirdPartyRequest) (*dto.ThirdPartyEventResponse, error) {
	req.DocumentNumber = strings.TrimSpace(req.DocumentNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid third party payload")
	}

	child, err := s.loadChildFor(ctx, actor, req.ChildID)
	if err != nil {
		return nil, err
	}
	now := s.calendar.Now()
	if err := s.precheck(ctx, child.ID, models.DateFrom(s.calendar.DateOf(now)), req.EventType); err != nil {
		return nil, err
	}

	facilityID := actor.FacilityID
	if child.FacilityID != nil {
		facilityID = *child.FacilityID
	}
	tp := &models.ThirdParty{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		Relationship:   req.Relationship,
		IDFrontPath:    req.IDFrontPath,
		IDBackPath:     req.IDBackPath,
		FacilityID:     facilityID,
		CreatedBy:      actor.UserID,
	}

	draft := s.draftAt(now, actor, child, req.EventType, nil, nil, req.Notes, req.Observations)
	ev, err := s.events.AppendWithThirdParty(ctx, tp, draft)
	if err != nil {
		return nil, storeError(err, "failed to register third party pickup")
	}
	s.recorded(ctx, ev, actor)
	return &dto.ThirdPartyEventResponse{ThirdParty: *tp, Event: *ev}, nil
}

// ListThirdParties pages through the third parties registered at a facility.
func (s *AttendanceService) ListThirdParties(ctx context.Context, actor Actor, filter models.ThirdPartyFilter) ([]models.ThirdParty, *models.Pagination, error) {
	facilityID, err := ResolveFacility(actor, filter.FacilityID)
	if err != nil {
		return nil, nil, err
	}
	filter.FacilityID = facilityID
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	items, total, err := s.thirdParties.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list third parties")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Backfill records a full day (ENTRY and EXIT) for a child with no events on
// a past date. Both rows are written in one transaction.
func (s *AttendanceService) Backfill(ctx context.Context, actor Actor, req dto.BackfillRequest) ([]models.AttendanceEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid backfill payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, validationError(err, "invalid date")
	}
	if date.After(s.presence.Today().Time) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot backfill a future date")
	}

	child, err := s.loadChildFor(ctx, actor, req.ChildID)
	if err != nil {
		return nil, err
	}
	linked, err := s.guardians.IsLinked(ctx, req.GuardianID, child.ID)
	if err != nil {
		return nil, storeError(err, "failed to verify guardian")
	}
	if !linked {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "guardian is not authorized for this child")
	}

	status, err := s.presence.FreshTodayStatus(ctx, child.ID, date)
	if err != nil {
		return nil, err
	}
	if status.HasEntry || status.HasExit {
		return nil, appErrors.Clone(appErrors.ErrAttendanceState, "child already has attendance on that date")
	}

	guardianID := req.GuardianID
	base := models.AttendanceEventDraft{
		Date:        date,
		ChildID:     child.ID,
		GuardianID:  &guardianID,
		RecordedBy:  actor.UserID,
		FacilityID:  child.FacilityID,
		ClassroomID: child.ClassroomID,
	}
	entry, exit := base, base
	entry.EventType, entry.Time = models.EventEntry, s.backfillIn
	exit.EventType, exit.Time = models.EventExit, s.backfillOut

	created, err := s.events.BulkAppend(ctx, []models.AttendanceEventDraft{entry, exit})
	if err != nil {
		return nil, storeError(err, "failed to backfill attendance")
	}
	s.presence.InvalidateStatus(ctx, date, child.ID)
	s.metrics.RecordEvent(models.EventEntry, "backfill", 1)
	s.metrics.RecordEvent(models.EventExit, "backfill", 1)
	s.logger.Info("attendance backfilled",
		zap.String("child_id", child.ID),
		zap.String("date", date.String()),
		zap.String("recorded_by", actor.UserID),
	)
	return created, nil
}

// History lists recent events for a child or for a staff member.
func (s *AttendanceService) History(ctx context.Context, actor Actor, query dto.HistoryQuery) ([]dto.HistoryEntry, error) {
	days := query.Days
	if days <= 0 {
		days = s.cfg.HistoryDefaultDays
	}
	if days > 366 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "days must be at most 366")
	}
	today := s.presence.Today()
	filter := models.HistoryFilter{
		ChildID:    strings.TrimSpace(query.ChildID),
		RecordedBy: strings.TrimSpace(query.RecordedBy),
		From:       today.AddDays(-days),
		To:         today,
	}
	if !actor.IsCoordinator() {
		filter.FacilityID = actor.FacilityID
	}

	rows, err := s.history.History(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to load attendance history")
	}
	entries := make([]dto.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, historyEntry(row))
	}
	return entries, nil
}

func historyEntry(row models.AttendanceEventView) dto.HistoryEntry {
	guardians, thirdParties := map[string]string{}, map[string]string{}
	if row.GuardianID != nil && row.GuardianName != nil {
		guardians[*row.GuardianID] = *row.GuardianName
	}
	if row.ThirdPartyID != nil && row.ThirdPartyName != nil {
		thirdParties[*row.ThirdPartyID] = *row.ThirdPartyName
	}
	requester, _ := RequesterDisplayName(row.AttendanceEvent, guardians, thirdParties)

	entry := dto.HistoryEntry{
		ID:            row.ID,
		Date:          row.Date,
		Time:          row.Time,
		EventType:     row.EventType,
		ChildID:       row.ChildID,
		ChildName:     row.ChildName,
		RequesterName: requester,
		RecordedBy:    row.RecordedBy,
		ClassroomName: row.ClassroomName,
		Notes:         row.Notes,
		Observations:  row.Observations,
	}
	if row.RecordedByName != nil {
		entry.RecordedByName = *row.RecordedByName
	}
	return entry
}

func (s *AttendanceService) loadChildFor(ctx context.Context, actor Actor, childID string) (*models.Child, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return nil, lookupError(err, "child not found", "failed to load child")
	}
	if !child.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "child is not active")
	}
	if err := checkChildFacility(actor, child); err != nil {
		return nil, err
	}
	return child, nil
}

// checkChildFacility limits non-coordinators to children of their own facility.
func checkChildFacility(actor Actor, child *models.Child) error {
	if actor.IsCoordinator() {
		return nil
	}
	if child.FacilityID == nil || *child.FacilityID != actor.FacilityID {
		return appErrors.Clone(appErrors.ErrForbidden, "child belongs to another facility")
	}
	return nil
}

// precheck rejects an event the child's status for date does not allow.
func (s *AttendanceService) precheck(ctx context.Context, childID string, date models.Date, eventType models.EventType) error {
	status, err := s.presence.FreshTodayStatus(ctx, childID, date)
	if err != nil {
		return err
	}
	if status.Allows(eventType) {
		return nil
	}
	s.metrics.RecordStateConflict(eventType)
	switch {
	case status.Completed:
		return appErrors.Clone(appErrors.ErrAttendanceState, "entry and exit already registered today")
	case eventType == models.EventEntry:
		return appErrors.Clone(appErrors.ErrAttendanceState, "entry already registered today")
	default:
		return appErrors.Clone(appErrors.ErrAttendanceState, "cannot register exit without an entry today")
	}
}

// appendAt stamps the event with the facility date and wall-clock time of now.
func (s *AttendanceService) appendAt(ctx context.Context, now time.Time, actor Actor, child *models.Child, eventType models.EventType, guardianID, thirdPartyID, notes *string, obs models.Observations) (*models.AttendanceEvent, error) {
	ev, err := s.events.Append(ctx, s.draftAt(now, actor, child, eventType, guardianID, thirdPartyID, notes, obs))
	if err != nil {
		return nil, storeError(err, "failed to register attendance")
	}
	s.recorded(ctx, ev, actor)
	return ev, nil
}

func (s *AttendanceService) draftAt(now time.Time, actor Actor, child *models.Child, eventType models.EventType, guardianID, thirdPartyID, notes *string, obs models.Observations) models.AttendanceEventDraft {
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		notes = &trimmed
		if trimmed == "" {
			notes = nil
		}
	}
	return models.AttendanceEventDraft{
		Date:         models.DateFrom(s.calendar.DateOf(now)),
		Time:         models.ClockOf(now),
		EventType:    eventType,
		ChildID:      child.ID,
		GuardianID:   guardianID,
		ThirdPartyID: thirdPartyID,
		RecordedBy:   actor.UserID,
		FacilityID:   child.FacilityID,
		ClassroomID:  child.ClassroomID,
		Notes:        notes,
		Observations: obs.Normalize(),
	}
}

// recorded runs the bookkeeping that follows a successful door event.
func (s *AttendanceService) recorded(ctx context.Context, ev *models.AttendanceEvent, actor Actor) {
	s.presence.InvalidateStatus(ctx, ev.Date, ev.ChildID)
	s.metrics.RecordEvent(ev.EventType, "staff", 1)
	s.logger.Info("attendance registered",
		zap.String("event_id", ev.ID),
		zap.String("child_id", ev.ChildID),
		zap.String("event_type", string(ev.EventType)),
		zap.String("recorded_by", actor.UserID),
	)
}
