package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
)

// FollowService manages organization subscriptions.
type FollowService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewFollowService constructs a FollowService.
func NewFollowService(db *gorm.DB, notificationService *NotificationService) (*FollowService, error) {
	if db == nil {
		return nil, errors.New("follow service: db is required")
	}
	return &FollowService{db: db, notifications: notificationService}, nil
}

// SetFollowing moves the subscription to the desired state. Both directions
// are idempotent: a duplicate insert lands on the unique pair index and counts
// as success, an absent delete is a no-op. The confirmation notification fires
// only when the insert actually created the row.
func (s *FollowService) SetFollowing(ctx context.Context, userID, organizationID string, following bool) (bool, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	organizationID = strings.TrimSpace(organizationID)
	if userID == "" || organizationID == "" {
		return false, apperrors.NewBadRequest("User and organization are required")
	}

	var organization models.Organization
	if err := s.db.WithContext(ctx).Take(&organization, "id = ?", organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.NewNotFound("Organization not found")
		}
		return false, fmt.Errorf("follow service: find organization: %w", err)
	}

	if !following {
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND organization_id = ?", userID, organizationID).
			Delete(&models.Follow{}).Error; err != nil {
			return false, fmt.Errorf("follow service: unfollow: %w", err)
		}
		return false, nil
	}

	follow := models.Follow{UserID: userID, OrganizationID: organizationID}
	if err := s.db.WithContext(ctx).Create(&follow).Error; err != nil {
		if isUniqueConstraintError(err) {
			return true, nil
		}
		return false, fmt.Errorf("follow service: follow: %w", err)
	}

	if s.notifications != nil {
		_, _ = s.notifications.Create(ctx, CreateNotificationInput{
			UserID:          userID,
			Type:            models.NotificationOrgFollowed,
			Title:           "Following " + organization.Name,
			Message:         "You will be notified about new opportunities from " + organization.Name,
			RelatedEntityID: organizationID,
		})
	}

	return true, nil
}

// IsFollowing reports whether the user follows the organization.
func (s *FollowService) IsFollowing(ctx context.Context, userID, organizationID string) (bool, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(organizationID) == "" {
		return false, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("follow service: check follow: %w", err)
	}
	return count > 0, nil
}

// ListFollowed returns the organizations the user follows, newest first.
func (s *FollowService) ListFollowed(ctx context.Context, userID string) ([]models.Organization, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("follow service: user id is required")
	}

	var rows []models.Follow
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("follow service: list followed: %w", err)
	}

	organizations := make([]models.Organization, 0, len(rows))
	for _, row := range rows {
		if row.Organization != nil {
			organizations = append(organizations, *row.Organization)
		}
	}
	return organizations, nil
}

// FollowerCount returns how many users follow the organization.
func (s *FollowService) FollowerCount(ctx context.Context, organizationID string) (int64, error) {
	ctx = ensureContext(ctx)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("follow service: follower count: %w", err)
	}
	return count, nil
}
