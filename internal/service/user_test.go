package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/service"
	"github.com/platefeed/backend/internal/testhelpers"
)

func TestUserService_Get(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, logger.NewNop())
	ctx := context.Background()

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")

	user, err := svc.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Get(ctx, 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUserService_List(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, logger.NewNop())

	testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")
	testhelpers.CreateTestUser(t, db, "bob@example.com", "bob", "password123")
	testhelpers.CreateTestUser(t, db, "carol@example.com", "carol", "password123")

	users, count, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.Len(t, users, 2)
}

func TestUserService_Update_SelfOnly(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, logger.NewNop())
	ctx := context.Background()

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")
	bob := testhelpers.CreateTestUser(t, db, "bob@example.com", "bob", "password123")

	updated, err := svc.Update(ctx, alice.ID, alice.ID, service.UserUpdateInput{
		FirstName: strPtr("Alicia"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)

	_, err = svc.Update(ctx, alice.ID, bob.ID, service.UserUpdateInput{FirstName: strPtr("Hacked")})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestUserService_Update_SuperuserEditsAnyone(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, logger.NewNop())
	ctx := context.Background()

	admin := testhelpers.CreateTestUser(t, db, "admin@example.com", "admin", "password123")
	require.NoError(t, db.Model(admin).Update("is_superuser", true).Error)
	bob := testhelpers.CreateTestUser(t, db, "bob@example.com", "bob", "password123")

	updated, err := svc.Update(ctx, admin.ID, bob.ID, service.UserUpdateInput{
		LastName: strPtr("Renamed"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.LastName)
}

func TestUserService_Update_ReservedUsername(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db, logger.NewNop())

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")

	_, err := svc.Update(context.Background(), alice.ID, alice.ID, service.UserUpdateInput{
		Username: strPtr("me"),
	})
	var vErr *service.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "username", vErr.Field)
}
