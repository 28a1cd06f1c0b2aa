package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/aruzhans/oppora/internal/auth"
	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/models"
	"github.com/aruzhans/oppora/internal/services"
)

func newSweeperFixtures(t *testing.T) (*gorm.DB, *iauth.SessionService, *iauth.PasswordResetService, *services.ApplicationService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "sweeper-secret"})
	require.NoError(t, err)

	sessions, err := iauth.NewSessionService(db, jwt, iauth.SessionConfig{})
	require.NoError(t, err)

	resets, err := iauth.NewPasswordResetService(db, nil, iauth.PasswordResetConfig{})
	require.NoError(t, err)

	notifications, err := services.NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	applications, err := services.NewApplicationService(db, notifications, services.ApplicationConfig{})
	require.NoError(t, err)

	return db, sessions, resets, applications
}

func TestSweeperRunOnce(t *testing.T) {
	db, sessions, resets, applications := newSweeperFixtures(t)

	user := models.User{Username: "sweep", Email: "sweep@example.com", Password: "secret", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	now := time.Now()

	expiredSession := models.Session{
		UserID:       user.ID,
		RefreshToken: "expired-token",
		ExpiresAt:    now.Add(-time.Hour),
		LastUsedAt:   now.Add(-2 * time.Hour),
	}
	require.NoError(t, db.Create(&expiredSession).Error)

	expiredReset := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     "expired-reset",
		ExpiresAt: now.Add(-time.Hour),
	}
	activeReset := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     "active-reset",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, db.Create(&expiredReset).Error)
	require.NoError(t, db.Create(&activeReset).Error)

	category := models.Category{Name: "Internships", Slug: "internships"}
	require.NoError(t, db.Create(&category).Error)
	organization := models.Organization{Name: "Acme Labs"}
	require.NoError(t, db.Create(&organization).Error)
	opportunity := models.Opportunity{
		Title:          "Research internship",
		CategoryID:     category.ID,
		OrganizationID: organization.ID,
		Status:         models.OpportunityStatusActive,
	}
	require.NoError(t, db.Create(&opportunity).Error)

	application, err := applications.Apply(context.Background(), user.ID, opportunity.ID, true)
	require.NoError(t, err)
	// Age the application past the confirmation grace window.
	require.NoError(t, db.Model(&models.Application{}).Where("id = ?", application.ID).
		Update("created_at", now.Add(-48*time.Hour)).Error)

	sweeper := NewSweeper(sessions, resets, applications)
	require.NoError(t, sweeper.RunOnce(context.Background()))

	var sessionCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.Zero(t, sessionCount)

	var resetTokens []models.PasswordResetToken
	require.NoError(t, db.Find(&resetTokens).Error)
	require.Len(t, resetTokens, 1)
	require.Equal(t, "active-reset", resetTokens[0].Token)

	var reminded models.Application
	require.NoError(t, db.Take(&reminded, "id = ?", application.ID).Error)
	require.NotNil(t, reminded.RemindedAt)

	var notificationCount int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", user.ID, models.NotificationConfirmReminder).
		Count(&notificationCount).Error)
	require.EqualValues(t, 1, notificationCount)

	// Reminders are one-shot; a second sweep stays quiet.
	require.NoError(t, sweeper.RunOnce(context.Background()))
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", user.ID, models.NotificationConfirmReminder).
		Count(&notificationCount).Error)
	require.EqualValues(t, 1, notificationCount)
}

func TestSweeperStartRegistersJobs(t *testing.T) {
	_, sessions, resets, applications := newSweeperFixtures(t)

	sweeper := NewSweeper(sessions, resets, applications,
		WithSessionSchedule("@every 1h"),
		WithTokenSchedule("@every 2h"),
		WithReminderSchedule("@every 30m"),
	)
	require.NoError(t, sweeper.Start())
	require.Len(t, sweeper.cron.Entries(), 3)
	<-sweeper.Stop().Done()
}
