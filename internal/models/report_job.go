package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType names an attendance report layout.
type ReportType string

const (
	// ReportTypeAttendanceDaily lists one facility's entries and exits for one day.
	ReportTypeAttendanceDaily ReportType = "attendance_daily"
	// ReportTypeAttendanceHistory lists a date range, optionally for one child.
	ReportTypeAttendanceHistory ReportType = "attendance_history"
)

// Valid reports whether t is a known report layout.
func (t ReportType) Valid() bool {
	return t == ReportTypeAttendanceDaily || t == ReportTypeAttendanceHistory
}

// ReportFormat is the rendered file type.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// Valid reports whether f can be rendered.
func (f ReportFormat) Valid() bool {
	return f == ReportFormatCSV || f == ReportFormatPDF
}

// ContentType is the MIME type served for downloads.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// ReportStatus is the job lifecycle: QUEUED -> PROCESSING -> FINISHED or
// FAILED. A failed attempt that may be retried goes back to QUEUED.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Terminal reports whether no further transition will happen.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusFinished || s == ReportStatusFailed
}

// ReportJob is one queued attendance export.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	FacilityID   string          `db:"facility_id" json:"facility_id"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	Attempts     int             `db:"attempts" json:"attempts"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ReportJobParams is the report selection, stored as JSONB.
type ReportJobParams struct {
	FacilityID string       `json:"facilityId"`
	ChildID    string       `json:"childId,omitempty"`
	From       string       `json:"from"`
	To         string       `json:"to"`
	Format     ReportFormat `json:"format"`
}

// Range parses the inclusive date range.
func (p ReportJobParams) Range() (from, to Date, err error) {
	if from, err = ParseDate(p.From); err != nil {
		return Date{}, Date{}, fmt.Errorf("report from date: %w", err)
	}
	if to, err = ParseDate(p.To); err != nil {
		return Date{}, Date{}, fmt.Errorf("report to date: %w", err)
	}
	return from, to, nil
}

// Value implements driver.Valuer.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode report params: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner. NULL and empty payloads decode to the zero value.
func (p *ReportJobParams) Scan(value interface{}) error {
	*p = ReportJobParams{}
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("report params: unsupported column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("decode report params: %w", err)
	}
	return nil
}
