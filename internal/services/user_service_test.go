package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/privacy"
)

func newUserService(t *testing.T) (*gorm.DB, *UserService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	friendService, err := NewFriendService(db, nil)
	require.NoError(t, err)
	svc, err := NewUserService(db, friendService)
	require.NoError(t, err)
	return db, svc
}

func TestGetProfileDefaultIsPublic(t *testing.T) {
	db, svc := newUserService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	require.NoError(t, db.Model(owner).Updates(map[string]any{
		"education": "State University",
		"skills":    "Go, SQL",
	}).Error)

	profile, err := svc.GetProfile(ctx, owner.ID, "")
	require.NoError(t, err)
	require.False(t, profile.IsSelf)
	require.NotNil(t, profile.Education)
	require.Equal(t, "State University", *profile.Education)
	require.NotNil(t, profile.Skills)
}

func TestGetProfileFriendsOnlyGating(t *testing.T) {
	db, svc := newUserService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	friend := seedUser(t, db, "friend")
	stranger := seedUser(t, db, "stranger")
	makeFriends(t, db, owner.ID, friend.ID)

	require.NoError(t, db.Model(owner).Updates(map[string]any{
		"education":     "State University",
		"privacy_level": privacy.LevelFriendsOnly,
	}).Error)

	asFriend, err := svc.GetProfile(ctx, owner.ID, friend.ID)
	require.NoError(t, err)
	require.True(t, asFriend.IsFriend)
	require.NotNil(t, asFriend.Education)

	asStranger, err := svc.GetProfile(ctx, owner.ID, stranger.ID)
	require.NoError(t, err)
	require.False(t, asStranger.IsFriend)
	require.Nil(t, asStranger.Education)

	anonymous, err := svc.GetProfile(ctx, owner.ID, "")
	require.NoError(t, err)
	require.Nil(t, anonymous.Education)

	// The owner always sees everything.
	self, err := svc.GetProfile(ctx, owner.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, self.IsSelf)
	require.NotNil(t, self.Education)
}

func TestGetProfilePerFieldOverrideBeatsDefault(t *testing.T) {
	db, svc := newUserService(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	stranger := seedUser(t, db, "stranger")

	// Public default, but contact details locked down.
	require.NoError(t, db.Model(owner).Updates(map[string]any{
		"education":           "State University",
		"contact_url":         "https://example.com/owner",
		"contact_url_privacy": privacy.LevelOnlyMe,
	}).Error)

	profile, err := svc.GetProfile(ctx, owner.ID, stranger.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Education)
	require.Nil(t, profile.ContactURL)

	// Flip: private default with one public field.
	require.NoError(t, db.Model(owner).Updates(map[string]any{
		"privacy_level":     privacy.LevelOnlyMe,
		"education_privacy": privacy.LevelPublic,
	}).Error)

	profile, err = svc.GetProfile(ctx, owner.ID, stranger.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Education)
	require.Nil(t, profile.Skills)
	require.Nil(t, profile.ContactURL)
}

func TestGetProfileUnknownUser(t *testing.T) {
	_, svc := newUserService(t)

	_, err := svc.GetProfile(context.Background(), "missing", "")
	requireAppErrorStatus(t, err, 404)
}

func TestUpdateProfileTouchesOnlyProvidedFields(t *testing.T) {
	db, svc := newUserService(t)
	ctx := context.Background()

	user := seedUser(t, db, "editor")

	bio := "Opportunity hunter"
	education := "  State University  "
	updated, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{
		Bio:       &bio,
		Education: &education,
	})
	require.NoError(t, err)
	require.Equal(t, "Opportunity hunter", updated.Bio)
	require.Equal(t, "State University", updated.Education)
	require.Equal(t, user.Username, updated.Username)
}

func TestUpdatePrivacyValidatesLevels(t *testing.T) {
	db, svc := newUserService(t)
	ctx := context.Background()

	user := seedUser(t, db, "editor")

	_, err := svc.UpdatePrivacy(ctx, user.ID, PrivacySettingsInput{Default: privacy.Level("secret")})
	requireAppErrorStatus(t, err, 400)

	bad := privacy.Level("secret")
	_, err = svc.UpdatePrivacy(ctx, user.ID, PrivacySettingsInput{
		Default:   privacy.LevelPublic,
		Education: &bad,
	})
	requireAppErrorStatus(t, err, 400)

	friendsOnly := privacy.LevelFriendsOnly
	updated, err := svc.UpdatePrivacy(ctx, user.ID, PrivacySettingsInput{
		Default: privacy.LevelPublic,
		Skills:  &friendsOnly,
	})
	require.NoError(t, err)
	require.Equal(t, privacy.LevelPublic, updated.PrivacyLevel)
	require.NotNil(t, updated.SkillsPrivacy)
	require.Equal(t, privacy.LevelFriendsOnly, *updated.SkillsPrivacy)
	require.Nil(t, updated.EducationPrivacy)
}

func TestSetTelegramChatID(t *testing.T) {
	db, svc := newUserService(t)
	ctx := context.Background()

	user := seedUser(t, db, "chatter")
	require.NoError(t, svc.SetTelegramChatID(ctx, user.ID, " 12345 "))

	reloaded, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "12345", reloaded.TelegramChatID)

	require.NoError(t, svc.SetTelegramChatID(ctx, user.ID, ""))
	reloaded, err = svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, reloaded.TelegramChatID)
}
