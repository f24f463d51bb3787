package service

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/internal/repository"
)

type facilityDirectory interface {
	List(ctx context.Context) ([]models.Facility, error)
	FindByID(ctx context.Context, id string) (*models.Facility, error)
}

type rosterCounter interface {
	CountByFacility(ctx context.Context, facilityID string) (repository.RosterCounts, error)
}

type eventCounter interface {
	CountByFacilityAndDate(ctx context.Context, facilityID string, date models.Date) (repository.EventCounts, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	// Concurrency caps the facilities summarised in parallel.
	Concurrency int
}

// DashboardService composes the facility and coordinator dashboards.
type DashboardService struct {
	facilities facilityDirectory
	roster     rosterCounter
	events     eventCounter
	presence   *PresenceService
	logger     *zap.Logger
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Facilities facilityDirectory
	Roster     rosterCounter
	Events     eventCounter
	Presence   *PresenceService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService wires the dashboard dependencies.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &DashboardService{
		facilities: params.Facilities,
		roster:     params.Roster,
		events:     params.Events,
		presence:   params.Presence,
		logger:     logger,
		cfg:        cfg,
	}
}

// Summary returns today's counters for one facility.
func (s *DashboardService) Summary(ctx context.Context, actor Actor, facilityID string) (*dto.FacilitySummary, error) {
	resolved, err := ResolveFacility(actor, facilityID)
	if err != nil {
		return nil, err
	}
	facility, err := s.facilities.FindByID(ctx, resolved)
	if err != nil {
		return nil, lookupError(err, "facility not found", "failed to load facility")
	}
	summary, err := s.summarize(ctx, *facility, s.presence.Today())
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Coordinator returns the summary of every active facility plus totals.
func (s *DashboardService) Coordinator(ctx context.Context) (*dto.CoordinatorDashboard, error) {
	facilities, err := s.facilities.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list facilities")
	}
	today := s.presence.Today()

	summaries := make([]dto.FacilitySummary, len(facilities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range facilities {
		i := i
		g.Go(func() error {
			summary, err := s.summarize(gctx, facilities[i], today)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].FacilityName < summaries[j].FacilityName })
	totals := dto.FacilitySummary{Date: today}
	for _, item := range summaries {
		totals.TotalChildren += item.TotalChildren
		totals.ActiveChildren += item.ActiveChildren
		totals.EntriesToday += item.EntriesToday
		totals.ExitsToday += item.ExitsToday
		totals.Absences += item.Absences
		totals.CurrentlyPresent += item.CurrentlyPresent
	}
	return &dto.CoordinatorDashboard{Date: today, Facilities: summaries, Totals: totals}, nil
}

func (s *DashboardService) summarize(ctx context.Context, facility models.Facility, date models.Date) (dto.FacilitySummary, error) {
	roster, err := s.roster.CountByFacility(ctx, facility.ID)
	if err != nil {
		return dto.FacilitySummary{}, storeError(err, "failed to count children")
	}
	counts, err := s.events.CountByFacilityAndDate(ctx, facility.ID, date)
	if err != nil {
		return dto.FacilitySummary{}, storeError(err, "failed to count attendance")
	}
	present, err := s.presence.ComputeCurrentlyPresent(ctx, facility.ID, date)
	if err != nil {
		return dto.FacilitySummary{}, err
	}

	absences := roster.Active - counts.Entries
	if absences < 0 {
		absences = 0
	}
	return dto.FacilitySummary{
		FacilityID:       facility.ID,
		FacilityName:     facility.Name,
		Date:             date,
		TotalChildren:    roster.Total,
		ActiveChildren:   roster.Active,
		EntriesToday:     counts.Entries,
		ExitsToday:       counts.Exits,
		Absences:         absences,
		CurrentlyPresent: len(present),
	}, nil
}
