package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/models"
)

func TestSetFollowingIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	notificationService, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)
	svc, err := NewFollowService(db, notificationService)
	require.NoError(t, err)

	ctx := context.Background()
	user := seedUser(t, db, "follower")
	organization := &models.Organization{Name: "Acme"}
	require.NoError(t, db.Create(organization).Error)

	for i := 0; i < 3; i++ {
		following, err := svc.SetFollowing(ctx, user.ID, organization.ID, true)
		require.NoError(t, err)
		require.True(t, following)
	}

	var follows int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	require.EqualValues(t, 1, follows)

	// The confirmation notification fired exactly once.
	var notificationCount int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationOrgFollowed).
		Count(&notificationCount).Error)
	require.EqualValues(t, 1, notificationCount)

	for i := 0; i < 2; i++ {
		following, err := svc.SetFollowing(ctx, user.ID, organization.ID, false)
		require.NoError(t, err)
		require.False(t, following)
	}

	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	require.Zero(t, follows)
}

func TestSetFollowingUnknownOrganization(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewFollowService(db, nil)
	require.NoError(t, err)

	user := seedUser(t, db, "follower")
	_, err = svc.SetFollowing(context.Background(), user.ID, "missing-org", true)
	requireAppErrorStatus(t, err, 404)
}

func TestIsFollowingAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewFollowService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()
	user := seedUser(t, db, "follower")
	first := &models.Organization{Name: "First"}
	second := &models.Organization{Name: "Second"}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)

	_, err = svc.SetFollowing(ctx, user.ID, first.ID, true)
	require.NoError(t, err)

	following, err := svc.IsFollowing(ctx, user.ID, first.ID)
	require.NoError(t, err)
	require.True(t, following)

	following, err = svc.IsFollowing(ctx, user.ID, second.ID)
	require.NoError(t, err)
	require.False(t, following)

	organizations, err := svc.ListFollowed(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, organizations, 1)
	require.Equal(t, first.ID, organizations[0].ID)

	count, err := svc.FollowerCount(ctx, first.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
