package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/campusdesk/college-admin-api/pkg/config"
)

// DSN renders the lib/pq keyword/value connection string.
func DSN(cfg config.DatabaseConfig) string {
	parts := []string{
		"host=" + quote(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + quote(cfg.User),
		"password=" + quote(cfg.Password),
		"dbname=" + quote(cfg.Name),
		"sslmode=" + quote(cfg.SSLMode),
		"application_name=college-admin-api",
		"connect_timeout=5",
	}
	return strings.Join(parts, " ")
}

// quote escapes a DSN value; lib/pq accepts single-quoted values with
// backslash escapes.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// NewPostgres opens a pooled PostgreSQL client and verifies connectivity.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Script is a named SQL batch applied by Migrate.
type Script struct {
	Name string
	SQL  string
}

// Migrate applies each script in its own transaction, in order. Scripts are
// expected to be idempotent.
func Migrate(ctx context.Context, db *sqlx.DB, scripts []Script) error {
	for _, script := range scripts {
		if err := applyScript(ctx, db, script); err != nil {
			return err
		}
	}
	return nil
}

func applyScript(ctx context.Context, db *sqlx.DB, script Script) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", script.Name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, script.SQL); err != nil {
		return fmt.Errorf("apply %s: %w", script.Name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", script.Name, err)
	}
	return nil
}
