package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guarderia-api/internal/models"
)

const userColumns = `id, document_number, password_hash, full_name, role, facility_id, active, last_login, created_at`

// UserRepository provides database access for staff accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByDocument returns a user by document number.
func (r *UserRepository) FindByDocument(ctx context.Context, document string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE document_number = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, document); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by document: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindFirstByRoles returns the oldest account holding any of the roles.
func (r *UserRepository) FindFirstByRoles(ctx context.Context, roles []models.UserRole) (*models.User, error) {
	if len(roles) == 0 {
		return nil, sql.ErrNoRows
	}
	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE role IN (?) ORDER BY created_at ASC LIMIT 1`, roles)
	if err != nil {
		return nil, fmt.Errorf("build role lookup: %w", err)
	}
	var user models.User
	if err := r.db.GetContext(ctx, &user, r.db.Rebind(query), args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by roles: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
