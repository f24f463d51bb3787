package dto

import (
	"time"

	"github.com/noah-isme/guarderia-api/internal/models"
)

// ReportRequest asks for an attendance export. Daily reports use Date;
// history reports use From and To and may narrow to one child.
type ReportRequest struct {
	Type       models.ReportType   `json:"type"`
	Format     models.ReportFormat `json:"format"`
	FacilityID string              `json:"facilityId"`
	ChildID    string              `json:"childId,omitempty"`
	Date       string              `json:"date,omitempty"`
	From       string              `json:"from,omitempty"`
	To         string              `json:"to,omitempty"`
}

// ReportJobResponse acknowledges a queued report.
type ReportJobResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	StatusURL string              `json:"statusUrl"`
}

// ReportStatusResponse is polled until Status is FINISHED or FAILED.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ReportType   `json:"type"`
	FacilityID string              `json:"facilityId"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	Attempts   int                 `json:"attempts"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
}
