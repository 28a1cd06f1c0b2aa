package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/models"
	"github.com/aruzhans/oppora/internal/notifications"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
	"github.com/aruzhans/oppora/pkg/telegram"
)

type fakeTelegram struct {
	sent []telegram.Message
}

func (f *fakeTelegram) Send(_ context.Context, msg telegram.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

func TestNotificationServiceCreateAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "alice")

	hub := notifications.NewHub()
	svc, err := NewNotificationService(db, hub, nil)
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{
		UserID:          user.ID,
		Type:            models.NotificationFriendRequest,
		Title:           "New friend request",
		Message:         "bob wants to connect",
		RelatedEntityID: "req-1",
		Metadata:        map[string]any{"sender_id": "user-bob"},
	})
	require.NoError(t, err)
	require.Equal(t, models.NotificationFriendRequest, dto.Type)
	require.Equal(t, "req-1", dto.RelatedEntityID)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: user.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, dto.ID, items[0].ID)
	require.False(t, items[0].IsRead)
	require.Equal(t, "user-bob", items[0].Metadata["sender_id"])
}

func TestNotificationServiceMarkReadAndUnreadCount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "bob")

	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.Create(ctx, CreateNotificationInput{
		UserID: user.ID,
		Type:   models.NotificationFriendRequest,
		Title:  "First",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateNotificationInput{
		UserID: user.ID,
		Type:   models.NotificationFriendAccepted,
		Title:  "Second",
	})
	require.NoError(t, err)

	unread, err := svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, unread)

	read, err := svc.MarkRead(ctx, user.ID, first.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	unread, err = svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)

	require.NoError(t, svc.MarkAllRead(ctx, user.ID))
	unread, err = svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, unread)
}

func TestNotificationServiceOwnershipChecks(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := seedUser(t, db, "owner")
	outsider := seedUser(t, db, "outsider")

	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{
		UserID: owner.ID,
		Type:   models.NotificationFriendRequest,
		Title:  "Hello",
	})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, outsider.ID, dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, outsider.ID, dto.ID), apperrors.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, owner.ID, dto.ID))
}

func TestNotificationServiceTelegramDelivery(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	linked := seedUser(t, db, "linked")
	unlinked := seedUser(t, db, "unlinked")
	require.NoError(t, db.Model(linked).Update("telegram_chat_id", "555").Error)

	sender := &fakeTelegram{}
	svc, err := NewNotificationService(db, nil, sender)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Create(ctx, CreateNotificationInput{
		UserID:  linked.ID,
		Type:    models.NotificationConfirmReminder,
		Title:   "Did you complete your application?",
		Message: "Please confirm.",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateNotificationInput{
		UserID: unlinked.ID,
		Type:   models.NotificationConfirmReminder,
		Title:  "Did you complete your application?",
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	require.Equal(t, "555", sender.sent[0].ChatID)
	require.Contains(t, sender.sent[0].Text, "Did you complete your application?")
}
