package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guarderia-api/internal/models"
)

const thirdPartyColumns = `id, first_name, last_name, document_type, document_number, phone, email, address, relationship, id_front_path, id_back_path, facility_id, created_by, created_at`

// ThirdPartyRepository persists ad hoc pickup people.
type ThirdPartyRepository struct {
	db *sqlx.DB
}

// NewThirdPartyRepository constructs the repository.
func NewThirdPartyRepository(db *sqlx.DB) *ThirdPartyRepository {
	return &ThirdPartyRepository{db: db}
}

const insertThirdParty = `INSERT INTO third_parties (` + thirdPartyColumns + `)
VALUES (:id, :first_name, :last_name, :document_type, :document_number, :phone, :email, :address, :relationship, :id_front_path, :id_back_path, :facility_id, :created_by, :created_at)`

// createThirdParty stamps tp and inserts it through ext, which may be a
// transaction shared with the event that names the third party.
func createThirdParty(ctx context.Context, ext sqlx.ExtContext, tp *models.ThirdParty, now time.Time) error {
	if tp.ID == "" {
		tp.ID = uuid.NewString()
	}
	if tp.CreatedAt.IsZero() {
		tp.CreatedAt = now.UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, ext, insertThirdParty, tp); err != nil {
		return fmt.Errorf("create third party: %w", err)
	}
	return nil
}

// FindByID returns a third party by identifier.
func (r *ThirdPartyRepository) FindByID(ctx context.Context, id string) (*models.ThirdParty, error) {
	query := `SELECT ` + thirdPartyColumns + ` FROM third_parties WHERE id = $1 LIMIT 1`
	var tp models.ThirdParty
	if err := r.db.GetContext(ctx, &tp, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find third party: %w", err)
	}
	return &tp, nil
}

// List returns a page of third parties and the total count.
func (r *ThirdPartyRepository) List(ctx context.Context, filter models.ThirdPartyFilter) ([]models.ThirdParty, int, error) {
	var (
		conditions = []string{"1=1"}
		args       []interface{}
	)
	if filter.FacilityID != "" {
		args = append(args, filter.FacilityID)
		conditions = append(conditions, fmt.Sprintf("facility_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR document_number ILIKE $%[1]d)", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM third_parties WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", thirdPartyColumns, where, size, offset)
	var rows []models.ThirdParty
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list third parties: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM third_parties WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count third parties: %w", err)
	}
	return rows, total, nil
}

// NamesByIDs resolves third party display names keyed by id.
func (r *ThirdPartyRepository) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	return lookupNames(ctx, r.db, "third_parties", ids)
}
