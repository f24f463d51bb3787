package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/internal/repository"
	"github.com/noah-isme/guarderia-api/pkg/clock"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
	"github.com/noah-isme/guarderia-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	Claim(ctx context.Context, id string, progress int) (bool, error)
	RequeueInterrupted(ctx context.Context) (int64, error)
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportServiceConfig governs request defaults, queue recovery and cleanup.
type ReportServiceConfig struct {
	APIPrefix          string
	ResultTTL          time.Duration
	CleanupInterval    time.Duration
	HistoryDefaultDays int
	MaxRangeDays       int
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Jobs     reportJobStore
	Queue    jobDispatcher
	Exporter *ExportService
	Calendar *clock.Calendar
	Logger   *zap.Logger
	Config   ReportServiceConfig
}

// ReportService manages the lifecycle of attendance report jobs.
type ReportService struct {
	repo     reportJobStore
	queue    jobDispatcher
	exporter *ExportService
	calendar *clock.Calendar
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(params ReportServiceParams) *ReportService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.HistoryDefaultDays <= 0 {
		cfg.HistoryDefaultDays = 30
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 366
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cal := params.Calendar
	if cal == nil {
		cal = clock.MustNew(clock.DefaultTimezone)
	}
	return &ReportService{
		repo:     params.Jobs,
		queue:    params.Queue,
		exporter: params.Exporter,
		calendar: cal,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateJob validates the request, persists a QUEUED job and enqueues it.
func (s *ReportService) CreateJob(ctx context.Context, actor Actor, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	params, err := s.buildParams(actor, req)
	if err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		Type:      req.Type,
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, storeError(err, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: string(job.Type)}); err != nil {
		s.markFailed(ctx, job.ID, "failed to enqueue job")
		return nil, appErrors.Internal(err, "failed to enqueue report job")
	}
	s.logger.Info("report job queued",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("facility_id", params.FacilityID),
	)
	return &dto.ReportJobResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		StatusURL: fmt.Sprintf("%s/reports/%s", s.cfg.APIPrefix, job.ID),
	}, nil
}

// GetStatus returns job progress. Staff only see jobs of their own facility.
func (s *ReportService) GetStatus(ctx context.Context, actor Actor, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	if !actor.IsCoordinator() && job.Params.FacilityID != actor.FacilityID && job.CreatedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ReportStatusResponse{
		ID:         job.ID,
		Type:       job.Type,
		FacilityID: job.Params.FacilityID,
		Status:     job.Status,
		Progress:   job.Progress,
		Attempts:   job.Attempts,
		ResultURL:  job.ResultURL,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs resets jobs interrupted by a restart and replays the
// queued ones.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	if reset, err := s.repo.RequeueInterrupted(ctx); err != nil {
		s.logger.Warn("failed to reset interrupted report jobs", zap.Error(err))
	} else if reset > 0 {
		s.logger.Info("interrupted report jobs requeued", zap.Int64("count", reset))
	}
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup purges expired exports every CleanupInterval until ctx ends.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := s.calendar.Now().Add(-s.cfg.ResultTTL)
	removed := 0
	for {
		finished, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Warn("cleanup list failed", zap.Error(err))
			return
		}
		for _, job := range finished {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			_, relPath, _, err := s.exporter.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.exporter.Delete(relPath); err != nil {
				s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			purged := ""
			if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{ResultURL: &purged}); err != nil {
				s.logger.Warn("cleanup update failed", zap.String("job_id", job.ID), zap.Error(err))
				return
			}
			removed++
		}
		if len(finished) < 100 {
			break
		}
	}
	swept, err := s.exporter.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
	if removed > 0 || len(swept) > 0 {
		s.logger.Info("expired exports removed", zap.Int("jobs", removed), zap.Int("files", len(swept)))
	}
}

// buildParams resolves the facility and date range for req.
func (s *ReportService) buildParams(actor Actor, req dto.ReportRequest) (models.ReportJobParams, error) {
	if !req.Type.Valid() {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "type must be attendance_daily or attendance_history")
	}
	if !req.Format.Valid() {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	facilityID, err := ResolveFacility(actor, req.FacilityID)
	if err != nil {
		return models.ReportJobParams{}, err
	}
	today := models.DateFrom(s.calendar.Today())

	var from, to models.Date
	switch req.Type {
	case models.ReportTypeAttendanceDaily:
		day, err := optionalDate(req.Date, today)
		if err != nil {
			return models.ReportJobParams{}, err
		}
		from, to = day, day
	case models.ReportTypeAttendanceHistory:
		if to, err = optionalDate(req.To, today); err != nil {
			return models.ReportJobParams{}, err
		}
		if from, err = optionalDate(req.From, to.AddDays(-s.cfg.HistoryDefaultDays)); err != nil {
			return models.ReportJobParams{}, err
		}
	}
	if from.After(to.Time) {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if to.Sub(from.Time) > time.Duration(s.cfg.MaxRangeDays)*24*time.Hour {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "report range is too long")
	}

	return models.ReportJobParams{
		FacilityID: facilityID,
		ChildID:    strings.TrimSpace(req.ChildID),
		From:       from.String(),
		To:         to.String(),
		Format:     req.Format,
	}, nil
}

func (s *ReportService) markFailed(ctx context.Context, id, msg string) {
	status := models.ReportStatusFailed
	progress := 100
	now := s.calendar.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateReportJobParams{
		Status:       &status,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark report job failed", zap.String("job_id", id), zap.Error(err))
	}
}

func optionalDate(raw string, fallback models.Date) (models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, validationError(err, "dates must use YYYY-MM-DD")
	}
	return d, nil
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker. maxRetries must match the queue's.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes one queued report job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.Permanent(err)
		}
		return err
	}
	if record.Status.Terminal() {
		return nil
	}
	progress := 10
	claimed, err := w.repo.Claim(ctx, job.ID, progress)
	if err != nil {
		return err
	}
	if !claimed {
		w.logger.Debug("report job not queued, skipping", zap.String("job_id", job.ID), zap.String("status", string(record.Status)))
		return nil
	}
	w.metrics.RecordReportJob(models.ReportStatusProcessing)

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
			w.metrics.RecordReportJob(models.ReportStatusFailed)
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	noError := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &noError,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordReportJob(models.ReportStatusFinished)
	w.logger.Info("report job finished", zap.String("job_id", job.ID), zap.Int("rows", result.Rows))
	return nil
}
