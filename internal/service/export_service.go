package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/pkg/clock"
	"github.com/noah-isme/guarderia-api/pkg/export"
	"github.com/noah-isme/guarderia-api/pkg/storage"
)

// reportRowLimit bounds how many events one export reads.
const reportRowLimit = 1000

var attendanceReportHeaders = []string{"Niño", "Aula", "Fecha", "Hora Entrada", "Entregó", "Hora Salida", "Recogió", "Observaciones"}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, header export.PDFHeader) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	Rows         int
	ExpiresAt    time.Time
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	History    attendanceHistoryReader
	Facilities facilityDirectory
	Storage    fileStorage
	Signer     *storage.SignedURLSigner
	CSV        csvRenderer
	PDF        pdfRenderer
	Calendar   *clock.Calendar
	Logger     *zap.Logger
	Config     ExportConfig
}

// ExportService turns attendance events into CSV or PDF sheets and signs
// download links for them.
type ExportService struct {
	history    attendanceHistoryReader
	facilities facilityDirectory
	storage    fileStorage
	signer     *storage.SignedURLSigner
	csv        csvRenderer
	pdf        pdfRenderer
	calendar   *clock.Calendar
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	cal := params.Calendar
	if cal == nil {
		cal = clock.MustNew(clock.DefaultTimezone)
	}
	return &ExportService{
		history:    params.History,
		facilities: params.Facilities,
		storage:    params.Storage,
		signer:     params.Signer,
		csv:        csv,
		pdf:        pdf,
		calendar:   cal,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds the dataset for job, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, header, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, header)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, header.Facility), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("report rendered",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("format", string(job.Params.Format)),
		zap.Int("rows", dataset.Len()),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		Rows:         dataset.Len(),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob, facility string) string {
	timestamp := s.calendar.Now().Format("20060102_150405")
	return fmt.Sprintf("asistencias_%s_%s_%s_%s.%s",
		sanitizeFilename(strings.ToLower(facility)),
		sanitizeFilename(job.Params.From),
		sanitizeFilename(job.Params.To),
		timestamp,
		job.Params.Format,
	)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, export.PDFHeader, error) {
	params := job.Params
	from, to, err := params.Range()
	if err != nil {
		return export.Dataset{}, export.PDFHeader{}, err
	}

	header := export.PDFHeader{Printed: s.calendar.Now()}
	switch job.Type {
	case models.ReportTypeAttendanceDaily:
		header.Title = "Control diario de asistencia"
		header.Subtitle = from.String()
	case models.ReportTypeAttendanceHistory:
		header.Title = "Historial de asistencia"
		header.Subtitle = fmt.Sprintf("%s a %s", from, to)
	default:
		return export.Dataset{}, export.PDFHeader{}, fmt.Errorf("unsupported report type %s", job.Type)
	}

	facility, err := s.facilities.FindByID(ctx, params.FacilityID)
	if err != nil {
		return export.Dataset{}, export.PDFHeader{}, fmt.Errorf("load facility %s: %w", params.FacilityID, err)
	}
	header.Facility = facility.Name

	rows, err := s.history.History(ctx, models.HistoryFilter{
		ChildID:    params.ChildID,
		FacilityID: params.FacilityID,
		From:       from,
		To:         to,
		Limit:      reportRowLimit,
	})
	if err != nil {
		return export.Dataset{}, export.PDFHeader{}, err
	}
	if len(rows) == reportRowLimit {
		s.logger.Warn("report truncated", zap.String("job_id", job.ID), zap.Int("limit", reportRowLimit))
	}
	return attendanceDataset(rows), header, nil
}

type childDay struct {
	childName  string
	classroom  string
	date       models.Date
	entryTime  string
	entryBy    string
	exitTime   string
	exitBy     string
	flags      []string
	firstEntry bool
	firstExit  bool
}

// attendanceDataset folds events into one row per child and date, keeping
// the earliest entry and exit of the day.
func attendanceDataset(rows []models.AttendanceEventView) export.Dataset {
	days := make(map[string]*childDay)
	order := make([]*childDay, 0)
	// rows arrive newest first; walk them oldest first
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		key := row.ChildID + "|" + row.Date.String()
		day, ok := days[key]
		if !ok {
			day = &childDay{childName: row.ChildName, date: row.Date}
			if row.ClassroomName != nil {
				day.classroom = *row.ClassroomName
			}
			days[key] = day
			order = append(order, day)
		}
		requester := historyEntry(row).RequesterName
		switch row.EventType {
		case models.EventEntry:
			if !day.firstEntry {
				day.entryTime, day.entryBy, day.firstEntry = row.Time.String(), requester, true
			}
		case models.EventExit:
			if !day.firstExit {
				day.exitTime, day.exitBy, day.firstExit = row.Time.String(), requester, true
			}
		}
		day.flags = append(day.flags, observationLabels(row.Observations)...)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if !order[i].date.Equal(order[j].date) {
			return order[i].date.Before(order[j].date.Time)
		}
		return order[i].childName < order[j].childName
	})

	data := make([]map[string]string, 0, len(order))
	for _, day := range order {
		data = append(data, map[string]string{
			"Niño":          day.childName,
			"Aula":          day.classroom,
			"Fecha":         day.date.String(),
			"Hora Entrada":  day.entryTime,
			"Entregó":       day.entryBy,
			"Hora Salida":   day.exitTime,
			"Recogió":       day.exitBy,
			"Observaciones": strings.Join(uniqueStrings(day.flags), ", "),
		})
	}
	return export.Dataset{Headers: attendanceReportHeaders, Rows: data}
}

func observationLabels(o models.Observations) []string {
	o = o.Normalize()
	var labels []string
	if o.Fever {
		labels = append(labels, "fiebre")
	}
	if o.Bites {
		labels = append(labels, "mordidas")
	}
	if o.Scratches {
		labels = append(labels, "rasguños")
	}
	if o.Bruises {
		labels = append(labels, "moretones")
	}
	if o.Other {
		if o.OtherText != nil {
			labels = append(labels, *o.OtherText)
		} else {
			labels = append(labels, "otro")
		}
	}
	return labels
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
