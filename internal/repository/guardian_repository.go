package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guarderia-api/internal/models"
)

// GuardianRepository resolves guardians and their children.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository constructs the repository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// FindByDocument returns the guardian holding the document within a facility.
func (r *GuardianRepository) FindByDocument(ctx context.Context, document, facilityID string) (*models.Guardian, error) {
	const query = `SELECT id, first_name, last_name, document_number, phone, facility_id FROM guardians WHERE document_number = $1 AND facility_id = $2 LIMIT 1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, document, facilityID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian by document: %w", err)
	}
	return &guardian, nil
}

// ChildrenOf lists the guardian's active children assigned to the facility.
func (r *GuardianRepository) ChildrenOf(ctx context.Context, guardianID, facilityID string) ([]models.GuardianChild, error) {
	const query = `SELECT c.id, c.first_name, c.last_name, c.document_number, c.facility_id, c.classroom_id, cl.name AS classroom_name, cg.relationship
FROM child_guardians cg
JOIN children c ON c.id = cg.child_id
LEFT JOIN classrooms cl ON cl.id = c.classroom_id
WHERE cg.guardian_id = $1 AND c.facility_id = $2 AND c.active = TRUE
ORDER BY c.first_name, c.last_name`
	var children []models.GuardianChild
	if err := r.db.SelectContext(ctx, &children, query, guardianID, facilityID); err != nil {
		return nil, fmt.Errorf("list guardian children: %w", err)
	}
	return children, nil
}

// IsLinked reports whether the guardian may drop off or pick up the child.
func (r *GuardianRepository) IsLinked(ctx context.Context, guardianID, childID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM child_guardians WHERE guardian_id = $1 AND child_id = $2)`
	var linked bool
	if err := r.db.GetContext(ctx, &linked, query, guardianID, childID); err != nil {
		return false, fmt.Errorf("check guardian link: %w", err)
	}
	return linked, nil
}

// NamesByIDs resolves guardian display names keyed by id.
func (r *GuardianRepository) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	return lookupNames(ctx, r.db, "guardians", ids)
}

type nameRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

func lookupNames(ctx context.Context, db *sqlx.DB, table string, ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT id, TRIM(first_name || ' ' || last_name) AS name FROM %s WHERE id IN (?)`, table), ids)
	if err != nil {
		return nil, fmt.Errorf("build %s name lookup: %w", table, err)
	}
	var rows []nameRow
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup %s names: %w", table, err)
	}
	for _, row := range rows {
		result[row.ID] = row.Name
	}
	return result, nil
}
