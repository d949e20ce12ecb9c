package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func plainHash(p string) (string, error) { return "hashed:" + p, nil }

func TestOpen_AppliesMigrations(t *testing.T) {
	d, err := Open("file:migrate?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	v, err := Version(d)
	require.NoError(t, err)
	require.Equal(t, 3, v)

	for _, table := range []string{"users", "jobs", "po_requests", "activity_log", "password_reset_tokens", "app_settings", "ai_usage_log"} {
		var name string
		err := d.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestRollbackLast(t *testing.T) {
	d, err := Open("file:rollback?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, RollbackLast(d))
	v, err := Version(d)
	require.NoError(t, err)
	require.Equal(t, 2, v)

	var n int
	err = d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='ai_usage_log'`).Scan(&n)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOpen_FileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	d, err := Open(path)
	require.NoError(t, err)
	_, err = d.Exec(`INSERT INTO jobs (job_name, year, created_date) VALUES ('Herons Glen', 2025, '2025-01-01')`)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d2, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d2.Close() })
	var name string
	require.NoError(t, d2.QueryRow(`SELECT job_name FROM jobs`).Scan(&name))
	require.Equal(t, "Herons Glen", name)
}

func TestSeed_Idempotent(t *testing.T) {
	d, err := Open("file:seed?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ctx := context.Background()
	require.NoError(t, Seed(ctx, d, plainHash))
	require.NoError(t, Seed(ctx, d, plainHash))

	var users, jobs int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM users WHERE role='technician'`).Scan(&users))
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&jobs))
	require.Equal(t, 5, users)
	require.Equal(t, 3, jobs)

	var pw string
	require.NoError(t, d.QueryRow(`SELECT password FROM users WHERE username='tech1'`).Scan(&pw))
	require.Equal(t, "hashed:tech123", pw)

	var setting string
	require.NoError(t, d.QueryRow(`SELECT value FROM app_settings WHERE key='claude_matching_enabled'`).Scan(&setting))
	require.Equal(t, "true", setting)
}
