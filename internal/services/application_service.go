package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
)

// DefaultConfirmGrace is how long an application may stay unconfirmed before
// it shows up in the unconfirmed listing and the reminder sweep.
const DefaultConfirmGrace = 24 * time.Hour

// ApplicationConfig tunes the application tracker.
type ApplicationConfig struct {
	ConfirmGrace time.Duration
	Clock        func() time.Time
}

// ApplicationService tracks user applications to opportunities.
type ApplicationService struct {
	db            *gorm.DB
	notifications *NotificationService
	grace         time.Duration
	now           func() time.Time
}

// NewApplicationService constructs an ApplicationService. The notification
// service is optional and only used by the reminder sweep.
func NewApplicationService(db *gorm.DB, notificationService *NotificationService, cfg ApplicationConfig) (*ApplicationService, error) {
	if db == nil {
		return nil, errors.New("application service: db is required")
	}

	grace := cfg.ConfirmGrace
	if grace <= 0 {
		grace = DefaultConfirmGrace
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &ApplicationService{
		db:            db,
		notifications: notificationService,
		grace:         grace,
		now:           clock,
	}, nil
}

// Apply records the user's application to an opportunity. IsApplied carries
// what the user reported about the external flow; confirmation comes later.
func (s *ApplicationService) Apply(ctx context.Context, userID, opportunityID string, isApplied bool) (*models.Application, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	opportunityID = strings.TrimSpace(opportunityID)
	if userID == "" || opportunityID == "" {
		return nil, apperrors.NewBadRequest("User and opportunity are required")
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Opportunity{}).
		Where("id = ?", opportunityID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("application service: find opportunity: %w", err)
	}
	if count == 0 {
		return nil, apperrors.NewNotFound("Opportunity not found")
	}

	application := models.Application{
		UserID:        userID,
		OpportunityID: opportunityID,
		IsApplied:     isApplied,
	}

	if err := s.db.WithContext(ctx).Create(&application).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("You have already applied to this opportunity", nil)
		}
		return nil, fmt.Errorf("application service: create application: %w", err)
	}

	return &application, nil
}

// Confirm answers the confirmation prompt for an existing application. Only
// the owner may confirm; the row is mutated in place, never duplicated.
func (s *ApplicationService) Confirm(ctx context.Context, userID, applicationID string, completed bool) (*models.Application, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	applicationID = strings.TrimSpace(applicationID)
	if userID == "" || applicationID == "" {
		return nil, apperrors.NewBadRequest("User and application are required")
	}

	var application models.Application
	if err := s.db.WithContext(ctx).Take(&application, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Application not found")
		}
		return nil, fmt.Errorf("application service: load application: %w", err)
	}

	if application.UserID != userID {
		return nil, apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Model(&application).
		Updates(map[string]any{
			"is_applied":   completed,
			"is_confirmed": true,
		}).Error; err != nil {
		return nil, fmt.Errorf("application service: confirm application: %w", err)
	}

	application.IsApplied = completed
	application.IsConfirmed = true
	return &application, nil
}

// ListForUser returns the user's applications, newest first.
func (s *ApplicationService) ListForUser(ctx context.Context, userID string) ([]models.Application, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("application service: user id is required")
	}

	var rows []models.Application
	if err := s.db.WithContext(ctx).
		Preload("Opportunity").
		Preload("Opportunity.Category").
		Preload("Opportunity.Organization").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("application service: list applications: %w", err)
	}
	return rows, nil
}

// ListUnconfirmed returns the user's applications past the confirmation grace
// window that still await an answer.
func (s *ApplicationService) ListUnconfirmed(ctx context.Context, userID string) ([]models.Application, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("application service: user id is required")
	}

	cutoff := s.now().Add(-s.grace)

	var rows []models.Application
	if err := s.db.WithContext(ctx).
		Preload("Opportunity").
		Where("user_id = ? AND is_confirmed = ? AND created_at < ?", userID, false, cutoff).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("application service: list unconfirmed: %w", err)
	}
	return rows, nil
}

// RemindUnconfirmed notifies owners of applications past the grace window and
// stamps reminded_at, so each application produces exactly one reminder.
func (s *ApplicationService) RemindUnconfirmed(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	cutoff := s.now().Add(-s.grace)

	var rows []models.Application
	if err := s.db.WithContext(ctx).
		Preload("Opportunity").
		Where("is_confirmed = ? AND reminded_at IS NULL AND created_at < ?", false, cutoff).
		Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("application service: load reminder batch: %w", err)
	}

	reminded := 0
	for i := range rows {
		application := &rows[i]

		title := "Did you complete your application?"
		message := "Please confirm whether you finished applying."
		if application.Opportunity != nil {
			message = fmt.Sprintf("Please confirm whether you finished applying to %q.", application.Opportunity.Title)
		}

		now := s.now()
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.Application{}).
				Where("id = ? AND reminded_at IS NULL", application.ID).
				Update("reminded_at", now)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				// Another sweep got here first.
				return nil
			}

			if s.notifications != nil {
				if _, err := s.notifications.CreateInTx(ctx, tx, CreateNotificationInput{
					UserID:          application.UserID,
					Type:            models.NotificationConfirmReminder,
					Title:           title,
					Message:         message,
					RelatedEntityID: application.ID,
					Metadata:        map[string]any{"opportunity_id": application.OpportunityID},
				}); err != nil {
					return err
				}
			}

			reminded++
			return nil
		})
		if err != nil {
			return reminded, fmt.Errorf("application service: remind %s: %w", application.ID, err)
		}
	}

	return reminded, nil
}
