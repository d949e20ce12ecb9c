package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HashFunc turns a plaintext password into its stored form.
type HashFunc func(password string) (string, error)

type seedUser struct {
	username, password, fullName string
}

// Technician accounts are provisioned up front; office users register themselves.
var defaultTechnicians = []seedUser{
	{"tech1", "tech123", "Tech One"},
	{"tech2", "tech123", "Tech Two"},
	{"tech3", "tech123", "Tech Three"},
	{"tech4", "tech123", "Tech Four"},
	{"tech5", "tech123", "Tech Five"},
}

var defaultJobs = []struct {
	name string
	year int
}{
	{"Chase Bank", 2024},
	{"Seven Lakes", 2025},
	{"Downtown Plaza", 2025},
}

// Seed inserts default settings, technician accounts and jobs. It is idempotent:
// existing users and settings are left alone and jobs are only added to an empty table.
func Seed(ctx context.Context, d *sql.DB, hash HashFunc) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now()
	stamp := now.Format("2006-01-02 15:04:05")
	day := now.Format("2006-01-02")

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO app_settings (key, value, updated_at) VALUES ('claude_matching_enabled', 'true', ?)`, stamp); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	for _, u := range defaultTechnicians {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, u.username).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			continue
		}
		h, err := hash(u.password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.username, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (username, password, role, full_name, created_date) VALUES (?, ?, 'technician', ?, ?)`,
			u.username, h, u.fullName, day); err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}

	var jobs int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&jobs); err != nil {
		return err
	}
	if jobs == 0 {
		for _, j := range defaultJobs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO jobs (job_name, year, created_date) VALUES (?, ?, ?)`, j.name, j.year, day); err != nil {
				return fmt.Errorf("seed job %s: %w", j.name, err)
			}
		}
	}
	return tx.Commit()
}
