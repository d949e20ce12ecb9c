package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/internal/testutil"
	"poRequestTracker/models"
)

func TestUserRepository_CRUDAndQueries(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "userrepo")
	repo := NewUserRepository(d)
	ctx := context.Background()

	u, err := repo.Create(ctx, &models.User{Username: "Alice", PasswordHash: "h", Role: models.RoleOffice, Email: "Alice@Example.com", FullName: "Alice A"})
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	assert.NotEmpty(t, u.CreatedDate)

	g, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "Alice", g.Username)
	assert.Equal(t, "h", g.PasswordHash)

	g2, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, g2)
	assert.Equal(t, u.ID, g2.ID)

	g3, err := repo.GetByEmail(ctx, "alice@example.COM")
	require.NoError(t, err)
	require.NotNil(t, g3)
	assert.Equal(t, u.ID, g3.ID)

	_, err = repo.Create(ctx, &models.User{Username: "ALICE", PasswordHash: "x", Role: models.RoleOffice})
	require.Error(t, err, "usernames are unique case-insensitively")

	_, err = repo.Create(ctx, &models.User{Username: "bob", PasswordHash: "x", Role: "end user"})
	require.Error(t, err)

	g.FullName = "Alice B"
	g.PasswordHash = ""
	require.NoError(t, repo.Update(ctx, g))
	g, _ = repo.GetByID(ctx, u.ID)
	assert.Equal(t, "Alice B", g.FullName)
	assert.Equal(t, "h", g.PasswordHash, "empty hash keeps the password")

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "h2"))
	require.NoError(t, repo.TouchLastLogin(ctx, u.ID, time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)))
	g, _ = repo.GetByID(ctx, u.ID)
	assert.Equal(t, "h2", g.PasswordHash)
	assert.Equal(t, "2025-01-02 03:04:05", g.LastLogin)

	require.NoError(t, repo.UpdateRoleByUsername(ctx, "alice", models.RoleAdmin))
	counts, err := repo.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.RoleAdmin])

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, u.ID))
	gone, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
