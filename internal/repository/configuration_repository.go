package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusdesk/college-admin-api/internal/models"
)

const upsertConfigurationSQL = `INSERT INTO configurations (key, value, type, description, updated_by, updated_at)
VALUES (:key, :value, :type, :description, :updated_by, :updated_at)
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    type = EXCLUDED.type,
    description = EXCLUDED.description,
    updated_by = EXCLUDED.updated_by,
    updated_at = EXCLUDED.updated_at`

// ConfigurationRepository stores system settings.
type ConfigurationRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db, now: time.Now}
}

// List returns every stored setting ordered by key.
func (r *ConfigurationRepository) List(ctx context.Context) ([]models.Setting, error) {
	const query = `SELECT key, value, type, description, updated_by, updated_at FROM configurations ORDER BY key`
	var settings []models.Setting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return settings, nil
}

// Get returns sql.ErrNoRows when the key has never been stored.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	const query = `SELECT key, value, type, description, updated_by, updated_at FROM configurations WHERE key = $1`
	var setting models.Setting
	if err := r.db.GetContext(ctx, &setting, query, key); err != nil {
		return nil, err
	}
	return &setting, nil
}

// Save upserts every setting in one transaction and returns the values they
// replaced. Keys that had no row are absent from the returned map. Each
// existing row is locked before it is overwritten.
func (r *ConfigurationRepository) Save(ctx context.Context, settings []models.Setting) (_ map[string]string, err error) {
	previous := make(map[string]string, len(settings))
	if len(settings) == 0 {
		return previous, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin configuration tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now().UTC()
	for i := range settings {
		var old string
		err = tx.GetContext(ctx, &old, `SELECT value FROM configurations WHERE key = $1 FOR UPDATE`, settings[i].Key)
		switch {
		case err == nil:
			previous[settings[i].Key] = old
		case errors.Is(err, sql.ErrNoRows):
			err = nil
		default:
			return nil, fmt.Errorf("lock configuration %s: %w", settings[i].Key, err)
		}

		settings[i].UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, upsertConfigurationSQL, settings[i]); err != nil {
			return nil, fmt.Errorf("save configuration %s: %w", settings[i].Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit configuration tx: %w", err)
	}
	return previous, nil
}
