package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guarderia-api/internal/models"
)

// ChildRepository reads the roster.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository constructs the repository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// FindByID returns a child by identifier.
func (r *ChildRepository) FindByID(ctx context.Context, id string) (*models.Child, error) {
	const query = `SELECT id, first_name, last_name, document_number, active, facility_id, classroom_id, created_at FROM children WHERE id = $1 LIMIT 1`
	var child models.Child
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find child by id: %w", err)
	}
	return &child, nil
}

// ListActiveByFacility returns active children assigned to the facility.
func (r *ChildRepository) ListActiveByFacility(ctx context.Context, facilityID string) ([]models.ChildSummary, error) {
	const query = `SELECT c.id, c.first_name, c.last_name, c.document_number, c.facility_id, c.classroom_id, cl.name AS classroom_name
FROM children c LEFT JOIN classrooms cl ON cl.id = c.classroom_id
WHERE c.facility_id = $1 AND c.active = TRUE ORDER BY c.first_name, c.last_name`
	var children []models.ChildSummary
	if err := r.db.SelectContext(ctx, &children, query, facilityID); err != nil {
		return nil, fmt.Errorf("list active children: %w", err)
	}
	return children, nil
}

// SummariesByIDs resolves roster rows keyed by child id.
func (r *ChildRepository) SummariesByIDs(ctx context.Context, ids []string) (map[string]models.ChildSummary, error) {
	result := make(map[string]models.ChildSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT c.id, c.first_name, c.last_name, c.document_number, c.facility_id, c.classroom_id, cl.name AS classroom_name
FROM children c LEFT JOIN classrooms cl ON cl.id = c.classroom_id WHERE c.id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build child lookup: %w", err)
	}
	var rows []models.ChildSummary
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup children: %w", err)
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	return result, nil
}

// RosterCounts holds facility roster totals.
type RosterCounts struct {
	Total  int `db:"total"`
	Active int `db:"active"`
}

// CountByFacility totals all and active children of a facility.
func (r *ChildRepository) CountByFacility(ctx context.Context, facilityID string) (RosterCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE active = TRUE) AS active FROM children WHERE facility_id = $1`
	var counts RosterCounts
	if err := r.db.GetContext(ctx, &counts, query, facilityID); err != nil {
		return RosterCounts{}, fmt.Errorf("count children: %w", err)
	}
	return counts, nil
}
