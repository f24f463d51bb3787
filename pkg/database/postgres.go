package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/guarderia-api/pkg/config"
)

const (
	applicationName = "guarderia-api"
	pingTimeout     = 5 * time.Second
	retryBackoff    = 2 * time.Second
)

// DSN renders the lib/pq connection string. DATABASE_URL takes precedence
// over the discrete settings; the session time zone and application name are
// appended to either form.
func DSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return "", fmt.Errorf("parse database url: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return "", fmt.Errorf("database url scheme %q is not postgres", u.Scheme)
		}
		q := u.Query()
		if q.Get("application_name") == "" {
			q.Set("application_name", applicationName)
		}
		if cfg.TimeZone != "" && q.Get("timezone") == "" {
			q.Set("timezone", cfg.TimeZone)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	parts := []string{
		kv("host", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		kv("user", cfg.User),
		kv("password", cfg.Password),
		kv("dbname", cfg.Name),
		kv("sslmode", cfg.SSLMode),
		kv("application_name", applicationName),
	}
	if cfg.TimeZone != "" {
		parts = append(parts, kv("timezone", cfg.TimeZone))
	}
	return strings.Join(parts, " "), nil
}

// kv quotes values the way lib/pq expects in keyword/value strings.
func kv(key, value string) string {
	if value == "" || strings.ContainsAny(value, ` '\`) {
		value = "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value) + "'"
	}
	return key + "=" + value
}

// NewPostgres opens the pool and waits for the server, retrying up to
// cfg.ConnectAttempts times so the API can start alongside its database.
func NewPostgres(cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; ; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}
		if i >= attempts {
			break
		}
		logger.Warn("postgres not ready, retrying", zap.Int("attempt", i), zap.Int("of", attempts), zap.Error(err))
		time.Sleep(retryBackoff)
	}
	_ = db.Close()
	return nil, fmt.Errorf("ping postgres after %d attempts: %w", attempts, err)
}

// WithTx runs fn inside a transaction, committing only when fn succeeds.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
