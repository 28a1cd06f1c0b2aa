package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/models"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
)

type serviceClock struct {
	current time.Time
}

func (c *serviceClock) Now() time.Time { return c.current }

func (c *serviceClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newApplicationService(t *testing.T, grace time.Duration, clock *serviceClock) (*gorm.DB, *ApplicationService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	notificationService, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	cfg := ApplicationConfig{ConfirmGrace: grace}
	if clock != nil {
		cfg.Clock = clock.Now
	}

	svc, err := NewApplicationService(db, notificationService, cfg)
	require.NoError(t, err)
	return db, svc
}

func TestApplyCreatesUnconfirmedApplication(t *testing.T) {
	db, svc := newApplicationService(t, 0, nil)
	ctx := context.Background()

	user := seedUser(t, db, "applicant")
	opportunity := seedOpportunity(t, db, "Exchange program")

	application, err := svc.Apply(ctx, user.ID, opportunity.ID, true)
	require.NoError(t, err)
	require.True(t, application.IsApplied)
	require.False(t, application.IsConfirmed)
}

func TestApplyUnknownOpportunity(t *testing.T) {
	db, svc := newApplicationService(t, 0, nil)
	user := seedUser(t, db, "applicant")

	_, err := svc.Apply(context.Background(), user.ID, "missing", true)
	requireAppErrorStatus(t, err, 404)
}

func TestApplyTwiceConflicts(t *testing.T) {
	db, svc := newApplicationService(t, 0, nil)
	ctx := context.Background()

	user := seedUser(t, db, "applicant")
	opportunity := seedOpportunity(t, db, "Exchange program")

	_, err := svc.Apply(ctx, user.ID, opportunity.ID, false)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, user.ID, opportunity.ID, true)
	requireAppErrorStatus(t, err, 409)
}

func TestConfirmMutatesExistingRow(t *testing.T) {
	db, svc := newApplicationService(t, 0, nil)
	ctx := context.Background()

	user := seedUser(t, db, "applicant")
	opportunity := seedOpportunity(t, db, "Exchange program")

	application, err := svc.Apply(ctx, user.ID, opportunity.ID, false)
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, user.ID, application.ID, true)
	require.NoError(t, err)
	require.True(t, confirmed.IsApplied)
	require.True(t, confirmed.IsConfirmed)

	var total int64
	require.NoError(t, db.Model(&models.Application{}).Count(&total).Error)
	require.EqualValues(t, 1, total)
}

func TestConfirmOwnerOnly(t *testing.T) {
	db, svc := newApplicationService(t, 0, nil)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	outsider := seedUser(t, db, "outsider")
	opportunity := seedOpportunity(t, db, "Exchange program")

	application, err := svc.Apply(ctx, owner.ID, opportunity.ID, true)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, outsider.ID, application.ID, true)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Confirm(ctx, owner.ID, "missing", true)
	requireAppErrorStatus(t, err, 404)
}

func TestListUnconfirmedHonoursGraceWindow(t *testing.T) {
	clock := &serviceClock{current: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	db, svc := newApplicationService(t, time.Hour, clock)
	ctx := context.Background()

	user := seedUser(t, db, "applicant")
	opportunity := seedOpportunity(t, db, "Exchange program")

	application, err := svc.Apply(ctx, user.ID, opportunity.ID, false)
	require.NoError(t, err)

	// Inside the grace window nothing is listed.
	pending, err := svc.ListUnconfirmed(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, pending)

	// Applications age against wall-clock created_at, so move the row instead
	// of the injected clock.
	require.NoError(t, db.Model(&models.Application{}).
		Where("id = ?", application.ID).
		Update("created_at", clock.Now().Add(-2*time.Hour)).Error)

	pending, err = svc.ListUnconfirmed(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, application.ID, pending[0].ID)

	// Confirmation clears it.
	_, err = svc.Confirm(ctx, user.ID, application.ID, true)
	require.NoError(t, err)

	pending, err = svc.ListUnconfirmed(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRemindUnconfirmedRemindsOnce(t *testing.T) {
	clock := &serviceClock{current: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	db, svc := newApplicationService(t, time.Hour, clock)
	ctx := context.Background()

	user := seedUser(t, db, "applicant")
	opportunity := seedOpportunity(t, db, "Exchange program")

	application, err := svc.Apply(ctx, user.ID, opportunity.ID, false)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Application{}).
		Where("id = ?", application.ID).
		Update("created_at", clock.Now().Add(-2*time.Hour)).Error)

	reminded, err := svc.RemindUnconfirmed(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, reminded)

	var notification models.Notification
	require.NoError(t, db.Take(&notification, "user_id = ? AND type = ?",
		user.ID, models.NotificationConfirmReminder).Error)
	require.Equal(t, application.ID, notification.RelatedEntityID)

	// A second sweep finds nothing.
	reminded, err = svc.RemindUnconfirmed(ctx)
	require.NoError(t, err)
	require.Zero(t, reminded)

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	require.EqualValues(t, 1, notifications)
}
