package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"poRequestTracker/models"
)

// SettingsRepository is a key/value store for runtime toggles.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored value for key, or def when unset.
func (r *SettingsRepository) Get(ctx context.Context, key, def string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var v sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return def, nil
		}
		return def, err
	}
	return v.String, nil
}

// Set stores value under key.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO app_settings (key, value, updated_at) VALUES (?,?,?)`,
		key, value, time.Now().Format(models.TimestampLayout))
	return err
}
