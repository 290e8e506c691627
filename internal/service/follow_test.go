package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/models"
	"github.com/platefeed/backend/internal/service"
	"github.com/platefeed/backend/internal/testhelpers"
)

func TestFollowService_Follow(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewFollowService(db, logger.NewNop())
	ctx := context.Background()

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")
	bob := testhelpers.CreateTestUser(t, db, "bob@example.com", "bob", "password123")

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))

	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// The edge is directed.
	reverse, err := svc.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, reverse)
}

func TestFollowService_SelfFollowRejected(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewFollowService(db, logger.NewNop())

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")

	err := svc.Follow(context.Background(), alice.ID, alice.ID)
	var vErr *service.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestFollowService_DuplicateFollowRejected(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewFollowService(db, logger.NewNop())
	ctx := context.Background()

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")
	bob := testhelpers.CreateTestUser(t, db, "bob@example.com", "bob", "password123")

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))

	err := svc.Follow(ctx, alice.ID, bob.ID)
	var cErr *service.ConflictError
	require.ErrorAs(t, err, &cErr)

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFollowService_UnknownAuthor(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewFollowService(db, logger.NewNop())

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")

	assert.ErrorIs(t, svc.Follow(context.Background(), alice.ID, 9999), service.ErrNotFound)
}

func TestFollowService_Unfollow(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewFollowService(db, logger.NewNop())
	ctx := context.Background()

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")
	bob := testhelpers.CreateTestUser(t, db, "bob@example.com", "bob", "password123")

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, svc.Unfollow(ctx, alice.ID, bob.ID))

	// Removing an edge that is not there is not-found.
	assert.ErrorIs(t, svc.Unfollow(ctx, alice.ID, bob.ID), service.ErrNotFound)
}

func TestFollowService_Subscriptions(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewFollowService(db, logger.NewNop())
	ctx := context.Background()

	alice := testhelpers.CreateTestUser(t, db, "alice@example.com", "alice", "password123")
	bob := testhelpers.CreateTestUser(t, db, "bob@example.com", "bob", "password123")
	carol := testhelpers.CreateTestUser(t, db, "carol@example.com", "carol", "password123")

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, svc.Follow(ctx, alice.ID, carol.ID))

	authors, count, err := svc.Subscriptions(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Len(t, authors, 2)

	authors, count, err = svc.Subscriptions(ctx, alice.ID, 2, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Len(t, authors, 1)

	ids, err := svc.FollowingIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, ids[bob.ID])
	assert.True(t, ids[carol.ID])
	assert.False(t, ids[alice.ID])
}
