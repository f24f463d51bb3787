package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/pkg/clock"
)

type attendanceEventReader interface {
	QueryByChildAndDate(ctx context.Context, childID string, date models.Date) ([]models.AttendanceEvent, error)
	QueryByFacilityAndDate(ctx context.Context, facilityID string, date models.Date) ([]models.AttendanceEvent, error)
}

type activeRosterReader interface {
	ListActiveByFacility(ctx context.Context, facilityID string) ([]models.ChildSummary, error)
	SummariesByIDs(ctx context.Context, ids []string) (map[string]models.ChildSummary, error)
}

type displayNameResolver interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

const thirdPartySuffix = " (tercero)"

// UnknownRequesterName is shown when a requester reference cannot be resolved.
const UnknownRequesterName = "Desconocido"

// DeriveTodayStatus computes the existence based status of one child on one
// date. Events for other children or dates are ignored. Duplicates count once.
func DeriveTodayStatus(childID string, date models.Date, events []models.AttendanceEvent) dto.TodayStatus {
	status := dto.TodayStatus{ChildID: childID, Date: date}
	for i := range events {
		ev := events[i]
		if ev.ChildID != childID || !ev.Date.Equal(date) {
			continue
		}
		switch ev.EventType {
		case models.EventEntry:
			if !status.HasEntry {
				status.HasEntry = true
				t := ev.Time
				status.EntryTime = &t
			}
		case models.EventExit:
			if !status.HasExit {
				status.HasExit = true
				t := ev.Time
				status.ExitTime = &t
			}
		}
	}

	switch {
	case !status.HasEntry:
		next := models.EventEntry
		status.NextAction = &next
	case !status.HasExit:
		next := models.EventExit
		status.NextAction = &next
	default:
		status.Completed = true
	}
	return status
}

// AbsentRoster returns the active children with no event of any type in events.
// Roster order is preserved.
func AbsentRoster(active []models.ChildSummary, events []models.AttendanceEvent) []models.ChildSummary {
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		seen[ev.ChildID] = struct{}{}
	}
	absent := make([]models.ChildSummary, 0, len(active))
	for _, child := range active {
		if _, ok := seen[child.ID]; ok {
			continue
		}
		absent = append(absent, child)
	}
	return absent
}

// LatestEventPerChild keeps, for every child, the event with the latest time.
// Equal times fall back to creation time and then to input position.
func LatestEventPerChild(events []models.AttendanceEvent) map[string]models.AttendanceEvent {
	latest := make(map[string]models.AttendanceEvent, len(events))
	for _, ev := range events {
		current, ok := latest[ev.ChildID]
		if !ok || !laterEvent(current, ev) {
			latest[ev.ChildID] = ev
		}
	}
	return latest
}

// laterEvent reports whether a sorts strictly after b.
func laterEvent(a, b models.AttendanceEvent) bool {
	if a.Time != b.Time {
		return a.Time.After(b.Time)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// CurrentlyPresent returns the latest ENTRY of every child whose latest event is
// an ENTRY, ordered by entry time.
func CurrentlyPresent(events []models.AttendanceEvent) []models.AttendanceEvent {
	latest := LatestEventPerChild(events)
	present := make([]models.AttendanceEvent, 0, len(latest))
	for _, ev := range latest {
		if ev.EventType == models.EventEntry {
			present = append(present, ev)
		}
	}
	sort.Slice(present, func(i, j int) bool {
		if present[i].Time != present[j].Time {
			return present[i].Time.Before(present[j].Time)
		}
		return present[i].ChildID < present[j].ChildID
	})
	return present
}

// PresenceServiceConfig tunes the status cache.
type PresenceServiceConfig struct {
	StatusCacheTTL time.Duration
}

// PresenceService derives status, absence and presence views from the event store.
type PresenceService struct {
	events       attendanceEventReader
	children     activeRosterReader
	guardians    displayNameResolver
	thirdParties displayNameResolver
	cache        *CacheService
	calendar     *clock.Calendar
	logger       *zap.Logger
	cfg          PresenceServiceConfig
}

// PresenceServiceParams groups constructor dependencies.
type PresenceServiceParams struct {
	Events       attendanceEventReader
	Children     activeRosterReader
	Guardians    displayNameResolver
	ThirdParties displayNameResolver
	Cache        *CacheService
	Calendar     *clock.Calendar
	Logger       *zap.Logger
	Config       PresenceServiceConfig
}

// NewPresenceService constructs the presence engine.
func NewPresenceService(params PresenceServiceParams) *PresenceService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calendar := params.Calendar
	if calendar == nil {
		calendar = clock.MustNew(clock.DefaultTimezone)
	}
	return &PresenceService{
		events:       params.Events,
		children:     params.Children,
		guardians:    params.Guardians,
		thirdParties: params.ThirdParties,
		cache:        params.Cache,
		calendar:     calendar,
		logger:       logger,
		cfg:          params.Config,
	}
}

// Today returns the facility-local civil date.
func (s *PresenceService) Today() models.Date {
	return models.DateFrom(s.calendar.Today())
}

// ComputeTodayStatus returns the status of a child on a date, reading through
// the status cache when it is enabled.
func (s *PresenceService) ComputeTodayStatus(ctx context.Context, childID string, date models.Date) (dto.TodayStatus, error) {
	if cached, hit := s.cache.Status(ctx, childID, date); hit {
		return cached, nil
	}

	status, err := s.FreshTodayStatus(ctx, childID, date)
	if err != nil {
		return dto.TodayStatus{}, err
	}
	s.cache.StoreStatus(ctx, status, s.cfg.StatusCacheTTL)
	return status, nil
}

// FreshTodayStatus bypasses the cache. Registration pre-checks use it.
func (s *PresenceService) FreshTodayStatus(ctx context.Context, childID string, date models.Date) (dto.TodayStatus, error) {
	events, err := s.events.QueryByChildAndDate(ctx, childID, date)
	if err != nil {
		return dto.TodayStatus{}, storeError(err, "failed to load attendance for child")
	}
	return DeriveTodayStatus(childID, date, events), nil
}

// InvalidateStatus drops the cached status of the given children on date.
func (s *PresenceService) InvalidateStatus(ctx context.Context, date models.Date, childIDs ...string) {
	_ = s.cache.ForgetStatuses(ctx, date, childIDs...)
}

// ComputeAbsentRoster returns active children of the facility with no event on date.
func (s *PresenceService) ComputeAbsentRoster(ctx context.Context, facilityID string, date models.Date) ([]models.ChildSummary, error) {
	active, err := s.children.ListActiveByFacility(ctx, facilityID)
	if err != nil {
		return nil, storeError(err, "failed to load active children")
	}
	events, err := s.events.QueryByFacilityAndDate(ctx, facilityID, date)
	if err != nil {
		return nil, storeError(err, "failed to load facility attendance")
	}
	return AbsentRoster(active, events), nil
}

// AbsentPage computes the absent roster and slices one page out of it.
// Pages are not stable when events are written between requests.
func (s *PresenceService) AbsentPage(ctx context.Context, query dto.AbsentRosterQuery) ([]models.ChildSummary, *models.Pagination, error) {
	absent, err := s.ComputeAbsentRoster(ctx, query.FacilityID, query.Date)
	if err != nil {
		return nil, nil, err
	}
	page, size := normalizePage(query.Page, query.PageSize)
	start := (page - 1) * size
	if start > len(absent) {
		start = len(absent)
	}
	end := start + size
	if end > len(absent) {
		end = len(absent)
	}
	return absent[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: len(absent)}, nil
}

// ComputeCurrentlyPresent lists the children inside the facility on date with
// the name of whoever dropped them off.
func (s *PresenceService) ComputeCurrentlyPresent(ctx context.Context, facilityID string, date models.Date) ([]dto.PresentChild, error) {
	events, err := s.events.QueryByFacilityAndDate(ctx, facilityID, date)
	if err != nil {
		return nil, storeError(err, "failed to load facility attendance")
	}
	present := CurrentlyPresent(events)
	if len(present) == 0 {
		return []dto.PresentChild{}, nil
	}

	childIDs := make([]string, 0, len(present))
	var guardianIDs, thirdPartyIDs []string
	for _, ev := range present {
		childIDs = append(childIDs, ev.ChildID)
		if ev.GuardianID != nil {
			guardianIDs = append(guardianIDs, *ev.GuardianID)
		} else if ev.ThirdPartyID != nil {
			thirdPartyIDs = append(thirdPartyIDs, *ev.ThirdPartyID)
		}
	}

	summaries, err := s.children.SummariesByIDs(ctx, childIDs)
	if err != nil {
		return nil, storeError(err, "failed to load children")
	}
	guardianNames := s.resolveNames(ctx, s.guardians, guardianIDs)
	thirdPartyNames := s.resolveNames(ctx, s.thirdParties, thirdPartyIDs)

	result := make([]dto.PresentChild, 0, len(present))
	for _, ev := range present {
		item := dto.PresentChild{
			ChildID:     ev.ChildID,
			ClassroomID: ev.ClassroomID,
			EntryTime:   ev.Time,
		}
		if summary, ok := summaries[ev.ChildID]; ok {
			item.ChildName = summary.FullName()
			item.DocumentNumber = summary.DocumentNumber
			item.ClassroomName = summary.ClassroomName
			if item.ClassroomID == nil {
				item.ClassroomID = summary.ClassroomID
			}
		}
		item.RequesterName, item.RequesterKind = RequesterDisplayName(ev, guardianNames, thirdPartyNames)
		result = append(result, item)
	}
	return result, nil
}

// RequesterDisplayName resolves who dropped off or picked up the child.
// Third parties carry the " (tercero)" suffix.
func RequesterDisplayName(ev models.AttendanceEvent, guardians, thirdParties map[string]string) (string, dto.RequesterKind) {
	if ev.GuardianID != nil {
		if name, ok := guardians[*ev.GuardianID]; ok && name != "" {
			return name, dto.RequesterGuardian
		}
		return UnknownRequesterName, dto.RequesterGuardian
	}
	if ev.ThirdPartyID != nil {
		if name, ok := thirdParties[*ev.ThirdPartyID]; ok && name != "" {
			return name + thirdPartySuffix, dto.RequesterThirdParty
		}
		return UnknownRequesterName + thirdPartySuffix, dto.RequesterThirdParty
	}
	return UnknownRequesterName, dto.RequesterUnknown
}

// resolveNames is best effort: names are display only.
func (s *PresenceService) resolveNames(ctx context.Context, resolver displayNameResolver, ids []string) map[string]string {
	if resolver == nil || len(ids) == 0 {
		return map[string]string{}
	}
	names, err := resolver.NamesByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("requester name lookup failed", zap.Int("ids", len(ids)), zap.Error(err))
		return map[string]string{}
	}
	return names
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	return page, size
}
