package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guarderia-api/internal/models"
)

// FacilityRepository reads daycare sites.
type FacilityRepository struct {
	db *sqlx.DB
}

// NewFacilityRepository constructs the repository.
func NewFacilityRepository(db *sqlx.DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// List returns active facilities ordered by name.
func (r *FacilityRepository) List(ctx context.Context) ([]models.Facility, error) {
	const query = `SELECT id, name, address, active FROM facilities WHERE active = TRUE ORDER BY name`
	var rows []models.Facility
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	return rows, nil
}

// FindByID returns a facility by identifier.
func (r *FacilityRepository) FindByID(ctx context.Context, id string) (*models.Facility, error) {
	const query = `SELECT id, name, address, active FROM facilities WHERE id = $1 LIMIT 1`
	var facility models.Facility
	if err := r.db.GetContext(ctx, &facility, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find facility: %w", err)
	}
	return &facility, nil
}
