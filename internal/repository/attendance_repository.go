package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/pkg/database"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

const attendanceColumns = `id, event_date, event_time, event_type, child_id, guardian_id, third_party_id, recorded_by, facility_id, classroom_id, notes, obs_fever, obs_bites, obs_scratches, obs_bruises, obs_other, obs_other_text, created_at`

const insertAttendanceEvent = `INSERT INTO attendance_events (` + attendanceColumns + `)
VALUES (:id, :event_date, :event_time, :event_type, :child_id, :guardian_id, :third_party_id, :recorded_by, :facility_id, :classroom_id, :notes, :obs_fever, :obs_bites, :obs_scratches, :obs_bruises, :obs_other, :obs_other_text, :created_at)`

// AttendanceRepository is the append-only store of check-in and check-out events.
// It never deduplicates: two ENTRY rows for the same child and date are accepted.
type AttendanceRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db, now: time.Now}
}

// Append validates and persists a single event.
func (r *AttendanceRepository) Append(ctx context.Context, draft models.AttendanceEventDraft) (*models.AttendanceEvent, error) {
	event, err := r.fromDraft(draft)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.NamedExecContext(ctx, insertAttendanceEvent, event); err != nil {
		return nil, fmt.Errorf("append attendance event: %w", err)
	}
	return event, nil
}

// BulkAppend inserts every draft in one statement inside a transaction.
// Either all rows are written or none are.
func (r *AttendanceRepository) BulkAppend(ctx context.Context, drafts []models.AttendanceEventDraft) ([]models.AttendanceEvent, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	events := make([]models.AttendanceEvent, 0, len(drafts))
	for _, d := range drafts {
		event, err := r.fromDraft(d)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, insertAttendanceEvent, events)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err == nil && affected != int64(len(events)) {
			return fmt.Errorf("inserted %d of %d rows", affected, len(events))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk append attendance events: %w", err)
	}
	return events, nil
}

// AppendWithThirdParty stores a newly captured third party together with the
// event that names them as requester. Both rows commit or neither does.
func (r *AttendanceRepository) AppendWithThirdParty(ctx context.Context, tp *models.ThirdParty, draft models.AttendanceEventDraft) (*models.AttendanceEvent, error) {
	if tp == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "third party is required")
	}
	if tp.ID == "" {
		tp.ID = uuid.NewString()
	}
	draft.GuardianID = nil
	draft.ThirdPartyID = &tp.ID
	event, err := r.fromDraft(draft)
	if err != nil {
		return nil, err
	}

	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := createThirdParty(ctx, tx, tp, event.CreatedAt); err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertAttendanceEvent, event); err != nil {
			return fmt.Errorf("append attendance event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// QueryByChildAndDate returns a child's events for a date ordered by time ascending.
func (r *AttendanceRepository) QueryByChildAndDate(ctx context.Context, childID string, date models.Date) ([]models.AttendanceEvent, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_events WHERE child_id = $1 AND event_date = $2 ORDER BY event_time ASC, created_at ASC`
	var events []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &events, query, childID, date); err != nil {
		return nil, fmt.Errorf("query attendance by child: %w", err)
	}
	return events, nil
}

// QueryByFacilityAndDate returns every event of a facility for a date ordered by time.
func (r *AttendanceRepository) QueryByFacilityAndDate(ctx context.Context, facilityID string, date models.Date) ([]models.AttendanceEvent, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_events WHERE facility_id = $1 AND event_date = $2 ORDER BY event_time ASC, created_at ASC`
	var events []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &events, query, facilityID, date); err != nil {
		return nil, fmt.Errorf("query attendance by facility: %w", err)
	}
	return events, nil
}

// ListOpenEntries returns, per child, the latest ENTRY on date for children
// with no EXIT on that date, across all facilities.
func (r *AttendanceRepository) ListOpenEntries(ctx context.Context, date models.Date) ([]models.OpenEntry, error) {
	const query = `SELECT DISTINCT ON (e.child_id) e.id AS entry_id, e.child_id, e.event_date, e.event_time, e.guardian_id, e.third_party_id, e.facility_id, e.classroom_id
FROM attendance_events e
WHERE e.event_date = $1 AND e.event_type = 'ENTRY'
AND NOT EXISTS (SELECT 1 FROM attendance_events x WHERE x.child_id = e.child_id AND x.event_date = e.event_date AND x.event_type = 'EXIT')
ORDER BY e.child_id, e.event_time DESC`
	var entries []models.OpenEntry
	if err := r.db.SelectContext(ctx, &entries, query, date); err != nil {
		return nil, fmt.Errorf("list open entries: %w", err)
	}
	return entries, nil
}

// HasEntries reports whether any ENTRY was recorded on date in any facility.
func (r *AttendanceRepository) HasEntries(ctx context.Context, date models.Date) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM attendance_events WHERE event_date = $1 AND event_type = 'ENTRY')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, date); err != nil {
		return false, fmt.Errorf("check entries for date: %w", err)
	}
	return exists, nil
}

// EventCounts holds per type totals for a facility and date.
type EventCounts struct {
	Entries int `db:"entries"`
	Exits   int `db:"exits"`
}

// CountByFacilityAndDate totals ENTRY and EXIT rows for the dashboard.
func (r *AttendanceRepository) CountByFacilityAndDate(ctx context.Context, facilityID string, date models.Date) (EventCounts, error) {
	const query = `SELECT COUNT(*) FILTER (WHERE event_type = 'ENTRY') AS entries, COUNT(*) FILTER (WHERE event_type = 'EXIT') AS exits
FROM attendance_events WHERE facility_id = $1 AND event_date = $2`
	var counts EventCounts
	if err := r.db.GetContext(ctx, &counts, query, facilityID, date); err != nil {
		return EventCounts{}, fmt.Errorf("count attendance events: %w", err)
	}
	return counts, nil
}

// History lists events with display names, newest first.
func (r *AttendanceRepository) History(ctx context.Context, filter models.HistoryFilter) ([]models.AttendanceEventView, error) {
	var (
		conditions = []string{"1=1"}
		args       []interface{}
	)
	add := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.ChildID != "" {
		add("e.child_id = $%d", filter.ChildID)
	}
	if filter.RecordedBy != "" {
		add("e.recorded_by = $%d", filter.RecordedBy)
	}
	if filter.FacilityID != "" {
		add("e.facility_id = $%d", filter.FacilityID)
	}
	if !filter.From.IsZero() {
		add("e.event_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("e.event_date <= $%d", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	query := fmt.Sprintf(`SELECT e.id, e.event_date, e.event_time, e.event_type, e.child_id, e.guardian_id, e.third_party_id, e.recorded_by, e.facility_id, e.classroom_id, e.notes, e.obs_fever, e.obs_bites, e.obs_scratches, e.obs_bruises, e.obs_other, e.obs_other_text, e.created_at,
TRIM(c.first_name || ' ' || c.last_name) AS child_name,
TRIM(g.first_name || ' ' || g.last_name) AS guardian_name,
TRIM(t.first_name || ' ' || t.last_name) AS third_party_name,
u.full_name AS recorded_by_name,
cl.name AS classroom_name
FROM attendance_events e
JOIN children c ON c.id = e.child_id
LEFT JOIN guardians g ON g.id = e.guardian_id
LEFT JOIN third_parties t ON t.id = e.third_party_id
LEFT JOIN users u ON u.id = e.recorded_by
LEFT JOIN classrooms cl ON cl.id = e.classroom_id
WHERE %s ORDER BY e.event_date DESC, e.event_time DESC LIMIT %d`, strings.Join(conditions, " AND "), limit)

	var rows []models.AttendanceEventView
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance history: %w", err)
	}
	return rows, nil
}

func (r *AttendanceRepository) fromDraft(d models.AttendanceEventDraft) (*models.AttendanceEvent, error) {
	switch {
	case strings.TrimSpace(d.ChildID) == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "childId is required")
	case !d.EventType.Valid():
		return nil, appErrors.Clone(appErrors.ErrValidation, "eventType must be ENTRY or EXIT")
	case d.Date.IsZero():
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	case strings.TrimSpace(d.RecordedBy) == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "recordedBy is required")
	case d.GuardianID != nil && d.ThirdPartyID != nil:
		return nil, appErrors.Clone(appErrors.ErrValidation, "only one of guardianId or thirdPartyId may be set")
	}
	return &models.AttendanceEvent{
		ID:           uuid.NewString(),
		Date:         d.Date,
		Time:         d.Time,
		EventType:    d.EventType,
		ChildID:      d.ChildID,
		GuardianID:   d.GuardianID,
		ThirdPartyID: d.ThirdPartyID,
		RecordedBy:   d.RecordedBy,
		FacilityID:   d.FacilityID,
		ClassroomID:  d.ClassroomID,
		Notes:        d.Notes,
		Observations: d.Observations.Normalize(),
		CreatedAt:    r.now().UTC(),
	}, nil
}
