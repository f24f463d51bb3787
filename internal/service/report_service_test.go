package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/internal/repository"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
	"github.com/noah-isme/guarderia-api/pkg/jobs"
)

type reportRepoStub struct {
	mu       sync.Mutex
	jobs     map[string]*models.ReportJob
	requeued int64
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(_ context.Context, job *models.ReportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) Update(_ context.Context, id string, params repository.UpdateReportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) Claim(_ context.Context, id string, progress int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != models.ReportStatusQueued {
		return false, nil
	}
	job.Status = models.ReportStatusProcessing
	job.Progress = progress
	job.Attempts++
	return true, nil
}

func (r *reportRepoStub) RequeueInterrupted(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusProcessing {
			job.Status = models.ReportStatusQueued
			job.Progress = 0
			r.requeued++
		}
	}
	return r.requeued, nil
}

func (r *reportRepoStub) ListQueued(context.Context, int) ([]models.ReportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.ReportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var finished []models.ReportJob
	for _, job := range r.jobs {
		if job.Status != models.ReportStatusFinished || job.FinishedAt == nil || !job.FinishedAt.Before(cutoff) {
			continue
		}
		if job.ResultURL == nil || *job.ResultURL == "" {
			continue
		}
		finished = append(finished, *job)
	}
	return finished, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newReportServiceForTest(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t, &fakeHistory{rows: dailyRows()})
	svc := NewReportService(ReportServiceParams{
		Jobs:     repo,
		Queue:    queue,
		Exporter: exportSvc,
		Calendar: fixedCalendar(),
		Logger:   zap.NewNop(),
		Config:   ReportServiceConfig{ResultTTL: time.Hour, CleanupInterval: time.Hour},
	})
	return svc, repo, queue, exportSvc
}

var reportStaff = Actor{UserID: "staff-1", Role: models.RoleAdmin, FacilityID: "f1"}

func TestReportServiceCreateDailyJobDefaultsToToday(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), reportStaff, dto.ReportRequest{
		Type:   models.ReportTypeAttendanceDaily,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, resp.ID, queue.jobs[0].ID)
	assert.Equal(t, string(models.ReportTypeAttendanceDaily), queue.jobs[0].Kind)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	assert.Equal(t, "/api/v1/reports/"+resp.ID, resp.StatusURL)

	job := repo.jobs[resp.ID]
	assert.Equal(t, "f1", job.Params.FacilityID)
	assert.Equal(t, testDay.String(), job.Params.From)
	assert.Equal(t, testDay.String(), job.Params.To)
	assert.Equal(t, "staff-1", job.CreatedBy)
}

func TestReportServiceCreateHistoryJobRange(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), reportStaff, dto.ReportRequest{
		Type:    models.ReportTypeAttendanceHistory,
		Format:  models.ReportFormatPDF,
		ChildID: " c1 ",
		To:      "2024-02-29",
	})
	require.NoError(t, err)
	job := repo.jobs[resp.ID]
	assert.Equal(t, "2024-01-30", job.Params.From)
	assert.Equal(t, "2024-02-29", job.Params.To)
	assert.Equal(t, "c1", job.Params.ChildID)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc, _, queue, _ := newReportServiceForTest(t)
	cases := map[string]dto.ReportRequest{
		"unknown type":   {Type: "grades", Format: models.ReportFormatCSV},
		"unknown format": {Type: models.ReportTypeAttendanceDaily, Format: "xlsx"},
		"bad date":       {Type: models.ReportTypeAttendanceDaily, Format: models.ReportFormatCSV, Date: "01/03/2024"},
		"inverted range": {Type: models.ReportTypeAttendanceHistory, Format: models.ReportFormatCSV, From: "2024-03-01", To: "2024-02-01"},
		"range too long": {Type: models.ReportTypeAttendanceHistory, Format: models.ReportFormatCSV, From: "2022-01-01", To: "2024-02-01"},
	}
	for name, req := range cases {
		req := req
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateJob(context.Background(), reportStaff, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
	assert.Empty(t, queue.jobs)
}

func TestReportServiceCreateJobOtherFacilityForbidden(t *testing.T) {
	svc, _, _, _ := newReportServiceForTest(t)
	_, err := svc.CreateJob(context.Background(), reportStaff, dto.ReportRequest{
		Type:       models.ReportTypeAttendanceDaily,
		Format:     models.ReportFormatCSV,
		FacilityID: "f2",
	})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	coordinator := Actor{UserID: "coord", Role: models.RoleCoordinator}
	_, err = svc.CreateJob(context.Background(), coordinator, dto.ReportRequest{
		Type:       models.ReportTypeAttendanceDaily,
		Format:     models.ReportFormatCSV,
		FacilityID: "f2",
	})
	assert.NoError(t, err)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	queue.err = jobs.ErrStopped
	_, err := svc.CreateJob(context.Background(), reportStaff, dto.ReportRequest{
		Type:   models.ReportTypeAttendanceDaily,
		Format: models.ReportFormatCSV,
	})
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
		require.NotNil(t, job.FinishedAt)
	}
}

func TestReportServiceGetStatus(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	url := "/api/v1/export/token"
	repo.jobs["job-1"] = &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeAttendanceDaily,
		Params:    models.ReportJobParams{FacilityID: "f1", Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		ResultURL: &url,
		CreatedBy: "someone-else",
	}

	resp, err := svc.GetStatus(context.Background(), reportStaff, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, resp.Status)
	assert.Equal(t, &url, resp.ResultURL)

	outsider := Actor{UserID: "staff-9", Role: models.RoleDoorkeeper, FacilityID: "f2"}
	_, err = svc.GetStatus(context.Background(), outsider, "job-1")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.GetStatus(context.Background(), reportStaff, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-download",
		Type:   models.ReportTypeAttendanceDaily,
		Params: models.ReportJobParams{FacilityID: "f1", From: testDay.String(), To: testDay.String(), Format: models.ReportFormatCSV},
		Status: models.ReportStatusProcessing,
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	_, err = svc.ResolveDownload(context.Background(), result.Token)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden), "not finished yet")

	job.Status = models.ReportStatusFinished
	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	assert.Equal(t, models.ReportFormatCSV, download.Format)

	_, err = svc.ResolveDownload(context.Background(), "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	repo.jobs["a"] = &models.ReportJob{ID: "a", Type: models.ReportTypeAttendanceDaily, Status: models.ReportStatusProcessing}
	repo.jobs["b"] = &models.ReportJob{ID: "b", Type: models.ReportTypeAttendanceHistory, Status: models.ReportStatusQueued}
	repo.jobs["c"] = &models.ReportJob{ID: "c", Type: models.ReportTypeAttendanceDaily, Status: models.ReportStatusFinished}

	svc.RecoverPendingJobs(context.Background())

	ids := make([]string, 0, len(queue.jobs))
	for _, job := range queue.jobs {
		ids = append(ids, job.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	assert.Equal(t, int64(1), repo.requeued)
}

func TestReportServiceCleanupExpired(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "old",
		Type:   models.ReportTypeAttendanceDaily,
		Params: models.ReportJobParams{FacilityID: "f1", From: testDay.String(), To: testDay.String(), Format: models.ReportFormatCSV},
		Status: models.ReportStatusFinished,
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	finishedAt := fixedCalendar().Now().Add(-2 * time.Hour)
	job.ResultURL = &result.URL
	job.FinishedAt = &finishedAt

	svc.cleanupExpired(context.Background())

	require.NotNil(t, job.ResultURL)
	assert.Empty(t, *job.ResultURL)
	_, err = exportSvc.Open(result.RelativePath)
	assert.Error(t, err)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(context.Context, *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func queuedReport(id string) *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{
		id: {
			ID:     id,
			Type:   models.ReportTypeAttendanceDaily,
			Params: models.ReportJobParams{FacilityID: "f1", From: testDay.String(), To: testDay.String(), Format: models.ReportFormatCSV},
			Status: models.ReportStatusQueued,
		},
	}}
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := queuedReport("job-1")
	metrics := NewMetricsService()
	worker := NewReportWorker(repo, exportStub{result: &ExportResult{URL: "/api/v1/export/token", Rows: 3}}, metrics, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/export/token", *job.ResultURL)
}

func TestReportWorkerHandleRetryThenFail(t *testing.T) {
	repo := queuedReport("job-1")
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, nil, 2, zap.NewNop())

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0}))
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "boom", *job.ErrorMessage)
	assert.Equal(t, 2, job.Attempts)
}

func TestReportWorkerSkipsJobClaimedElsewhere(t *testing.T) {
	repo := queuedReport("job-1")
	repo.jobs["job-1"].Status = models.ReportStatusProcessing
	worker := NewReportWorker(repo, exportStub{err: errors.New("must not render")}, nil, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	assert.Equal(t, models.ReportStatusProcessing, repo.jobs["job-1"].Status)
	assert.Zero(t, repo.jobs["job-1"].Attempts)
}

func TestReportWorkerMissingJobIsPermanent(t *testing.T) {
	worker := NewReportWorker(newReportRepoStub(), exportStub{}, nil, 3, zap.NewNop())
	err := worker.Handle(context.Background(), jobs.Job{ID: "gone"})
	assert.True(t, jobs.IsPermanent(err))
}
