package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/guarderia-api/internal/dto"
	"github.com/noah-isme/guarderia-api/internal/models"
	"github.com/noah-isme/guarderia-api/internal/repository"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

var errStoreDown = errors.New("connection refused")

// memoryEventStore is an in-memory attendance store with the same ordering
// and validation rules as the SQL repository.
type memoryEventStore struct {
	mu        sync.Mutex
	events    []models.AttendanceEvent
	seq       int
	appendErr error
	bulkErr   error
	queryErr  error
	appends   int
	bulkCalls int

	// thirdParties receives people created by AppendWithThirdParty.
	thirdParties *fakeThirdParties
}

func (m *memoryEventStore) Append(_ context.Context, draft models.AttendanceEventDraft) (*models.AttendanceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	ev, err := m.materialize(draft)
	if err != nil {
		return nil, err
	}
	m.events = append(m.events, ev)
	return &ev, nil
}

func (m *memoryEventStore) BulkAppend(_ context.Context, drafts []models.AttendanceEventDraft) ([]models.AttendanceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls++
	if m.bulkErr != nil {
		return nil, m.bulkErr
	}
	created := make([]models.AttendanceEvent, 0, len(drafts))
	for _, d := range drafts {
		ev, err := m.materialize(d)
		if err != nil {
			return nil, err
		}
		created = append(created, ev)
	}
	m.events = append(m.events, created...)
	return created, nil
}

func (m *memoryEventStore) AppendWithThirdParty(ctx context.Context, tp *models.ThirdParty, draft models.AttendanceEventDraft) (*models.AttendanceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	if draft.ChildID == "" || draft.RecordedBy == "" || !draft.EventType.Valid() || draft.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance event")
	}
	if m.thirdParties != nil {
		if err := m.thirdParties.Create(ctx, tp); err != nil {
			return nil, err
		}
	}
	draft.GuardianID = nil
	draft.ThirdPartyID = &tp.ID
	ev, err := m.materialize(draft)
	if err != nil {
		return nil, err
	}
	m.events = append(m.events, ev)
	return &ev, nil
}

func (m *memoryEventStore) materialize(d models.AttendanceEventDraft) (models.AttendanceEvent, error) {
	if d.ChildID == "" || d.RecordedBy == "" || !d.EventType.Valid() || d.Date.IsZero() {
		return models.AttendanceEvent{}, appErrors.Clone(appErrors.ErrValidation, "invalid attendance event")
	}
	m.seq++
	return models.AttendanceEvent{
		ID:           fmt.Sprintf("ev-%03d", m.seq),
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
		Observations: d.Observations,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second),
	}, nil
}

func (m *memoryEventStore) seed(events ...models.AttendanceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		m.seq++
		if ev.ID == "" {
			ev.ID = fmt.Sprintf("ev-%03d", m.seq)
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
		}
		m.events = append(m.events, ev)
	}
}

func (m *memoryEventStore) filter(keep func(models.AttendanceEvent) bool) []models.AttendanceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AttendanceEvent, 0)
	for _, ev := range m.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *memoryEventStore) QueryByChildAndDate(_ context.Context, childID string, date models.Date) ([]models.AttendanceEvent, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.filter(func(ev models.AttendanceEvent) bool {
		return ev.ChildID == childID && ev.Date.Equal(date)
	}), nil
}

func (m *memoryEventStore) QueryByFacilityAndDate(_ context.Context, facilityID string, date models.Date) ([]models.AttendanceEvent, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.filter(func(ev models.AttendanceEvent) bool {
		return ev.FacilityID != nil && *ev.FacilityID == facilityID && ev.Date.Equal(date)
	}), nil
}

// ListOpenEntries mirrors the set-difference query: latest ENTRY per child
// on date for children without any EXIT on date.
func (m *memoryEventStore) ListOpenEntries(_ context.Context, date models.Date) ([]models.OpenEntry, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	events := m.filter(func(ev models.AttendanceEvent) bool { return ev.Date.Equal(date) })
	exited := map[string]bool{}
	for _, ev := range events {
		if ev.EventType == models.EventExit {
			exited[ev.ChildID] = true
		}
	}
	latest := map[string]models.AttendanceEvent{}
	for _, ev := range events {
		if ev.EventType == models.EventEntry && !exited[ev.ChildID] {
			latest[ev.ChildID] = ev
		}
	}
	open := make([]models.OpenEntry, 0, len(latest))
	for _, ev := range latest {
		open = append(open, models.OpenEntry{
			EntryID:      ev.ID,
			ChildID:      ev.ChildID,
			Date:         ev.Date,
			Time:         ev.Time,
			GuardianID:   ev.GuardianID,
			ThirdPartyID: ev.ThirdPartyID,
			FacilityID:   ev.FacilityID,
			ClassroomID:  ev.ClassroomID,
		})
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ChildID < open[j].ChildID })
	return open, nil
}

func (m *memoryEventStore) HasEntries(_ context.Context, date models.Date) (bool, error) {
	if m.queryErr != nil {
		return false, m.queryErr
	}
	entries := m.filter(func(ev models.AttendanceEvent) bool {
		return ev.EventType == models.EventEntry && ev.Date.Equal(date)
	})
	return len(entries) > 0, nil
}

func (m *memoryEventStore) CountByFacilityAndDate(ctx context.Context, facilityID string, date models.Date) (repository.EventCounts, error) {
	events, err := m.QueryByFacilityAndDate(ctx, facilityID, date)
	if err != nil {
		return repository.EventCounts{}, err
	}
	var counts repository.EventCounts
	for _, ev := range events {
		if ev.EventType == models.EventEntry {
			counts.Entries++
		} else {
			counts.Exits++
		}
	}
	return counts, nil
}

func (m *memoryEventStore) all() []models.AttendanceEvent {
	return m.filter(func(models.AttendanceEvent) bool { return true })
}

type fakeChildren struct {
	children []models.Child
	names    map[string]string // classroom id -> name
	err      error
}

func (f *fakeChildren) FindByID(_ context.Context, id string) (*models.Child, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.children {
		if c.ID == id {
			child := c
			return &child, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeChildren) summary(c models.Child) models.ChildSummary {
	s := models.ChildSummary{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		DocumentNumber: c.DocumentNumber,
		FacilityID:     c.FacilityID,
		ClassroomID:    c.ClassroomID,
	}
	if c.ClassroomID != nil {
		if name, ok := f.names[*c.ClassroomID]; ok {
			s.ClassroomName = &name
		}
	}
	return s
}

func (f *fakeChildren) ListActiveByFacility(_ context.Context, facilityID string) ([]models.ChildSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.ChildSummary{}
	for _, c := range f.children {
		if c.Active && c.FacilityID != nil && *c.FacilityID == facilityID {
			out = append(out, f.summary(c))
		}
	}
	return out, nil
}

func (f *fakeChildren) SummariesByIDs(_ context.Context, ids []string) (map[string]models.ChildSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[string]models.ChildSummary{}
	for _, c := range f.children {
		if want[c.ID] {
			out[c.ID] = f.summary(c)
		}
	}
	return out, nil
}

func (f *fakeChildren) CountByFacility(_ context.Context, facilityID string) (repository.RosterCounts, error) {
	if f.err != nil {
		return repository.RosterCounts{}, f.err
	}
	var counts repository.RosterCounts
	for _, c := range f.children {
		if c.FacilityID == nil || *c.FacilityID != facilityID {
			continue
		}
		counts.Total++
		if c.Active {
			counts.Active++
		}
	}
	return counts, nil
}

type fakeNames struct {
	names map[string]string
	err   error
	calls int
}

func (f *fakeNames) NamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]string{}
	for _, id := range ids {
		if name, ok := f.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

// memoryCache is a CacheRepository backed by a map.
type memoryCache struct {
	mu       sync.Mutex
	entries  map[string]interface{}
	deleted  []string
	patterns []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *dto.TodayStatus:
		*d = v.(dto.TodayStatus)
	default:
		return fmt.Errorf("unsupported cache destination %T", dest)
	}
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	for k := range c.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func strPtr(s string) *string { return &s }

func mustDate(raw string) models.Date {
	d, err := models.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func event(id, child string, kind models.EventType, at string, date models.Date, facility string) models.AttendanceEvent {
	return models.AttendanceEvent{
		ID:         id,
		ChildID:    child,
		EventType:  kind,
		Time:       models.MustClockTime(at),
		Date:       date,
		RecordedBy: "staff-1",
		FacilityID: strPtr(facility),
	}
}
