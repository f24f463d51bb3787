package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guarderia-api/internal/models"
)

const reportJobColumns = `id, type, facility_id, params, status, progress, attempts, result_url, created_by, created_at, finished_at, error_message`

// ReportRepository persists attendance report jobs in attendance_reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a queued job. The facility column mirrors params so status
// lookups and cleanup can filter without decoding JSON.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.FacilityID = job.Params.FacilityID
	const query = `INSERT INTO attendance_reports (id, type, facility_id, params, status, progress, attempts, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :type, :facility_id, :params, :status, :progress, :attempts, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID returns a job by its identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query := `SELECT ` + reportJobColumns + ` FROM attendance_reports WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return &job, nil
}

// Claim moves a QUEUED job to PROCESSING and counts the attempt. It reports
// false when the job was not queued, so two workers never render the same
// report.
func (r *ReportRepository) Claim(ctx context.Context, id string, progress int) (bool, error) {
	const query = `UPDATE attendance_reports SET status = 'PROCESSING', progress = $2, attempts = attempts + 1
WHERE id = $1 AND status = 'QUEUED'`
	res, err := r.db.ExecContext(ctx, query, id, progress)
	if err != nil {
		return false, fmt.Errorf("claim report job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim report job: %w", err)
	}
	return n == 1, nil
}

// UpdateReportJobParams lists the mutable columns; nil fields are untouched.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

type setClause struct {
	cols []string
	args []interface{}
}

func (s *setClause) add(col string, v interface{}) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

// Update persists the provided changes for a job.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	var set setClause
	if params.Status != nil {
		set.add("status", *params.Status)
	}
	if params.Progress != nil {
		set.add("progress", *params.Progress)
	}
	if params.ResultURL != nil {
		set.add("result_url", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		set.add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		set.add("finished_at", *params.FinishedAt)
	}
	if len(set.cols) == 0 {
		return nil
	}

	set.args = append(set.args, id)
	query := fmt.Sprintf("UPDATE attendance_reports SET %s WHERE id = $%d", strings.Join(set.cols, ", "), len(set.args))
	if _, err := r.db.ExecContext(ctx, query, set.args...); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// RequeueInterrupted moves jobs left PROCESSING by a previous process back to
// QUEUED and returns how many were reset.
func (r *ReportRepository) RequeueInterrupted(ctx context.Context) (int64, error) {
	const query = `UPDATE attendance_reports SET status = 'QUEUED', progress = 0 WHERE status = 'PROCESSING'`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("requeue interrupted report jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue interrupted report jobs: %w", err)
	}
	return affected, nil
}

// ListQueued returns the oldest queued jobs for cold start recovery.
func (r *ReportRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + reportJobColumns + ` FROM attendance_reports WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued report jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore returns finished jobs older than cutoff whose file has
// not been purged yet.
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + reportJobColumns + ` FROM attendance_reports
WHERE status = 'FINISHED' AND finished_at < $1 AND COALESCE(result_url, '') <> ''
ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	return jobs, nil
}
