package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/pkg/clock"
)

type openEntryStore interface {
	ListOpenEntries(ctx context.Context, date models.Date) ([]models.OpenEntry, error)
	HasEntries(ctx context.Context, date models.Date) (bool, error)
	BulkAppend(ctx context.Context, drafts []models.AttendanceEventDraft) ([]models.AttendanceEvent, error)
}

type systemUserFinder interface {
	FindByDocument(ctx context.Context, document string) (*models.User, error)
	FindFirstByRoles(ctx context.Context, roles []models.UserRole) (*models.User, error)
}

const (
	msgNoPendingEntries = "No hay registros pendientes"
	msgAllExited        = "Todos los niños tienen salida registrada"
	msgExitsRecorded    = "Salidas automáticas registradas exitosamente"
	msgNoSystemUser     = "No se encontró usuario para registrar las salidas automáticas"
)

// ReconciliationConfig tunes the daily closing job.
type ReconciliationConfig struct {
	ClosingTime    *models.ClockTime
	SystemDocument string
	FallbackRoles  []models.UserRole
	Note           string
}

// ReconciliationService closes every ENTRY left without an EXIT at the end of the day.
type ReconciliationService struct {
	events   openEntryStore
	users    systemUserFinder
	presence *PresenceService
	metrics  *MetricsService
	calendar *clock.Calendar
	logger   *zap.Logger
	cfg      ReconciliationConfig
	closing  models.ClockTime
}

// NewReconciliationService constructs the job service.
func NewReconciliationService(events openEntryStore, users systemUserFinder, presence *PresenceService, metrics *MetricsService, calendar *clock.Calendar, logger *zap.Logger, cfg ReconciliationConfig) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calendar == nil {
		calendar = clock.MustNew(clock.DefaultTimezone)
	}
	closing := models.ClockOr(cfg.ClosingTime, models.NewClockTime(18, 0, 0))
	if cfg.SystemDocument == "" {
		cfg.SystemDocument = "SISTEMA_AUTO"
	}
	if len(cfg.FallbackRoles) == 0 {
		cfg.FallbackRoles = []models.UserRole{models.RoleAdmin, models.RoleCoordinator}
	}
	if strings.TrimSpace(cfg.Note) == "" {
		cfg.Note = fmt.Sprintf("Salida automática registrada por el sistema a las %s", closing.Short())
	}
	return &ReconciliationService{
		events:   events,
		users:    users,
		presence: presence,
		metrics:  metrics,
		calendar: calendar,
		logger:   logger,
		cfg:      cfg,
		closing:  closing,
	}
}

// Run closes open entries for today on the facility calendar.
func (s *ReconciliationService) Run(ctx context.Context) dto.ReconciliationResult {
	return s.RunFor(ctx, models.DateFrom(s.calendar.Today()))
}

// RunFor closes open entries for date. Any failure aborts the run with
// nothing written; running again after success is a no-op.
func (s *ReconciliationService) RunFor(ctx context.Context, date models.Date) dto.ReconciliationResult {
	logger := s.logger.With(zap.String("date", date.String()))
	logger.Info("reconciliation started")

	result, err := s.reconcile(ctx, date, logger)
	if err != nil {
		logger.Error("reconciliation failed", zap.Error(err))
		s.metrics.RecordReconciliation(false, 0, s.calendar.Now())
		return dto.ReconciliationResult{Success: false, Error: err.Error(), Processed: 0}
	}
	s.metrics.RecordReconciliation(true, result.Processed, s.calendar.Now())
	return result
}

func (s *ReconciliationService) reconcile(ctx context.Context, date models.Date, logger *zap.Logger) (dto.ReconciliationResult, error) {
	open, err := s.events.ListOpenEntries(ctx, date)
	if err != nil {
		return dto.ReconciliationResult{}, err
	}
	logger.Info("open entries found", zap.Int("count", len(open)))

	if len(open) == 0 {
		hadEntries, err := s.events.HasEntries(ctx, date)
		if err != nil {
			return dto.ReconciliationResult{}, err
		}
		if !hadEntries {
			return dto.ReconciliationResult{Success: true, Message: msgNoPendingEntries}, nil
		}
		return dto.ReconciliationResult{Success: true, Message: msgAllExited}, nil
	}

	recorder, err := s.systemUser(ctx)
	if err != nil {
		return dto.ReconciliationResult{}, err
	}

	note := s.cfg.Note
	drafts := make([]models.AttendanceEventDraft, 0, len(open))
	childIDs := make([]string, 0, len(open))
	for _, entry := range open {
		drafts = append(drafts, models.AttendanceEventDraft{
			Date:         date,
			Time:         s.closing,
			EventType:    models.EventExit,
			ChildID:      entry.ChildID,
			GuardianID:   entry.GuardianID,
			ThirdPartyID: entry.ThirdPartyID,
			RecordedBy:   recorder.ID,
			FacilityID:   entry.FacilityID,
			ClassroomID:  entry.ClassroomID,
			Notes:        &note,
		})
		childIDs = append(childIDs, entry.ChildID)
	}

	inserted, err := s.events.BulkAppend(ctx, drafts)
	if err != nil {
		return dto.ReconciliationResult{}, err
	}
	s.presence.InvalidateStatus(ctx, date, childIDs...)
	s.metrics.RecordEvent(models.EventExit, "system", len(inserted))
	logger.Info("automatic exits recorded",
		zap.Int("inserted", len(inserted)),
		zap.String("recorded_by", recorder.ID),
	)

	return dto.ReconciliationResult{
		Success:    true,
		Message:    msgExitsRecorded,
		Processed:  len(inserted),
		Date:       date.String(),
		ClosedTime: s.closing.Short(),
	}, nil
}

// systemUser resolves the account automatic exits are recorded by.
func (s *ReconciliationService) systemUser(ctx context.Context) (*models.User, error) {
	user, err := s.users.FindByDocument(ctx, s.cfg.SystemDocument)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	user, err = s.users.FindFirstByRoles(ctx, s.cfg.FallbackRoles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(msgNoSystemUser)
		}
		return nil, err
	}
	s.logger.Warn("system account missing, using fallback user",
		zap.String("document", s.cfg.SystemDocument),
		zap.String("user_id", user.ID),
	)
	return user, nil
}
