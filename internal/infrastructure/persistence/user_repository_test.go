package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestUser builds a user without paying for bcrypt
func newTestUser(email, name string) *identity.User {
	return &identity.User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             identity.NormalizeEmail(email),
		PasswordHash:      "x",
		Name:              name,
		Status:            identity.UserStatusActive,
	}
}

func TestGormUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(setupTestDB(t))

	u := newTestUser("Owner@Shop.io", "Owner")
	require.NoError(t, repo.Save(ctx, u))

	found, err := repo.FindByEmail(ctx, "  OWNER@shop.io ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	exists, err := repo.ExistsByEmail(ctx, "owner@SHOP.io")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Save(ctx, newTestUser("owner@shop.io", "Dup")), shared.ErrAlreadyExists)
}

func TestGormMembershipRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewGormUserRepository(db)
	repo := NewGormMembershipRepository(db)
	storeID := uuid.New()

	owner := newTestUser("owner@shop.io", "Owner")
	staff := newTestUser("staff@shop.io", "Staff")
	require.NoError(t, users.Save(ctx, owner))
	require.NoError(t, users.Save(ctx, staff))

	m1, err := identity.NewMembership(owner.ID, storeID, identity.RoleOwner)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, m1))
	m2, err := identity.NewMembership(staff.ID, storeID, identity.RoleStaff)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, m2))

	dup, err := identity.NewMembership(staff.ID, storeID, identity.RoleAdmin)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists, "one membership per user and store")

	members, err := repo.ListMembers(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	emails := []string{members[0].Email, members[1].Email}
	assert.ElementsMatch(t, []string{"owner@shop.io", "staff@shop.io"}, emails)

	owners, err := repo.CountByRole(ctx, storeID, identity.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owners)

	found, err := repo.Find(ctx, storeID, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleStaff, found.Role)

	_, err = repo.Find(ctx, uuid.New(), staff.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	byUser, err := repo.FindByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	require.NoError(t, repo.Delete(ctx, storeID, staff.ID))
	assert.ErrorIs(t, repo.Delete(ctx, storeID, staff.ID), shared.ErrNotFound)
}
