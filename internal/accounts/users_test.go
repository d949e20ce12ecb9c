package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/internal/auth"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

func TestAdminUserCRUD(t *testing.T) {
	s, _ := newService(t, "acct_admin_users")
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "admin", UserInput{Username: "boss", Password: "pw1234", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = s.CreateUser(ctx, "admin", UserInput{Username: "boss", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrMissingFields)

	u, err := s.CreateUser(ctx, "admin", UserInput{Username: "boss", Password: "pw1234", Role: "Admin", FullName: "The Boss"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = s.CreateUser(ctx, "admin", UserInput{Username: "TECH1", Password: "x", Role: models.RoleTechnician})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	updated, err := s.UpdateUser(ctx, "admin", u.ID, UserInput{Username: "boss", Role: models.RoleOffice, Email: "boss@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOffice, updated.Role)
	assert.Equal(t, "boss@example.com", updated.Email)
	assert.True(t, auth.CheckPassword(updated.PasswordHash, "pw1234"), "blank password keeps the old one")

	updated, err = s.UpdateUser(ctx, "admin", u.ID, UserInput{Username: "boss", Password: "changed", Role: models.RoleOffice})
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(updated.PasswordHash, "changed"))

	_, err = s.UpdateUser(ctx, "admin", u.ID, UserInput{Username: "tech2", Role: models.RoleOffice})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, err = s.UpdateUser(ctx, "admin", 999, UserInput{Username: "x", Role: models.RoleOffice})
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, "Boss", u.ID), ErrSelfDelete)
	require.NoError(t, s.DeleteUser(ctx, "admin", u.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, "admin", u.ID), ErrUserNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 5)

	for action, n := range map[string]int{models.ActionUserCreated: 1, models.ActionUserUpdated: 2, models.ActionUserDeleted: 1} {
		entries, err := s.Activity.List(ctx, repository.ActivityFilter{Action: action})
		require.NoError(t, err)
		assert.Len(t, entries, n, action)
	}
}
