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
	"github.com/aruzhans/oppora/pkg/metrics"
)

const defaultViewHistoryLimit = 20

// ViewedOpportunity pairs an opportunity with when the user first viewed it.
type ViewedOpportunity struct {
	Opportunity models.Opportunity `json:"opportunity"`
	ViewedAt    time.Time          `json:"viewed_at"`
}

// EngagementService tracks bookmarks and opportunity views.
type EngagementService struct {
	db *gorm.DB
}

// NewEngagementService constructs an EngagementService.
func NewEngagementService(db *gorm.DB) (*EngagementService, error) {
	if db == nil {
		return nil, errors.New("engagement service: db is required")
	}
	return &EngagementService{db: db}, nil
}

// SetBookmark moves the bookmark to the desired state. Duplicate inserts land
// on the unique pair index and count as success.
func (s *EngagementService) SetBookmark(ctx context.Context, userID, opportunityID string, bookmarked bool) (bool, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	opportunityID = strings.TrimSpace(opportunityID)
	if userID == "" || opportunityID == "" {
		return false, apperrors.NewBadRequest("User and opportunity are required")
	}

	if err := s.ensureOpportunity(ctx, opportunityID); err != nil {
		return false, err
	}

	if !bookmarked {
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND opportunity_id = ?", userID, opportunityID).
			Delete(&models.Bookmark{}).Error; err != nil {
			return false, fmt.Errorf("engagement service: remove bookmark: %w", err)
		}
		return false, nil
	}

	bookmark := models.Bookmark{UserID: userID, OpportunityID: opportunityID}
	if err := s.db.WithContext(ctx).Create(&bookmark).Error; err != nil {
		if isUniqueConstraintError(err) {
			return true, nil
		}
		return false, fmt.Errorf("engagement service: add bookmark: %w", err)
	}
	return true, nil
}

// IsBookmarked reports the bookmark state for the pair.
func (s *EngagementService) IsBookmarked(ctx context.Context, userID, opportunityID string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("user_id = ? AND opportunity_id = ?", userID, opportunityID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("engagement service: check bookmark: %w", err)
	}
	return count > 0, nil
}

// ListBookmarks returns the user's bookmarked opportunities, newest first.
func (s *EngagementService) ListBookmarks(ctx context.Context, userID string) ([]models.Opportunity, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("engagement service: user id is required")
	}

	var rows []models.Bookmark
	if err := s.db.WithContext(ctx).
		Preload("Opportunity").
		Preload("Opportunity.Category").
		Preload("Opportunity.Organization").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("engagement service: list bookmarks: %w", err)
	}

	opportunities := make([]models.Opportunity, 0, len(rows))
	for _, row := range rows {
		if row.Opportunity != nil {
			opportunities = append(opportunities, *row.Opportunity)
		}
	}
	return opportunities, nil
}

// MarkViewed records the user's view of an opportunity. The event marker and
// the visit counter move in one transaction: the first call inserts the marker
// and increments, every later call hits the marker's unique index and leaves
// the counter alone. Returns whether this call was the counted one.
func (s *EngagementService) MarkViewed(ctx context.Context, userID, opportunityID string) (bool, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	opportunityID = strings.TrimSpace(opportunityID)
	if userID == "" || opportunityID == "" {
		return false, apperrors.NewBadRequest("User and opportunity are required")
	}

	if err := s.ensureOpportunity(ctx, opportunityID); err != nil {
		return false, err
	}

	counted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := models.EventLog{
			UserID:     userID,
			EntityType: models.EntityOpportunity,
			EntityID:   opportunityID,
			EventType:  models.EventOpportunityView,
		}
		if err := tx.Create(&marker).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil
			}
			return fmt.Errorf("record view marker: %w", err)
		}

		if err := tx.Model(&models.Opportunity{}).
			Where("id = ?", opportunityID).
			UpdateColumn("visit_count", gorm.Expr("visit_count + 1")).Error; err != nil {
			return fmt.Errorf("increment visit count: %w", err)
		}

		counted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("engagement service: mark viewed: %w", err)
	}

	outcome := "duplicate"
	if counted {
		outcome = "counted"
	}
	metrics.OpportunityViews.WithLabelValues(outcome).Inc()

	return counted, nil
}

// HasViewed reports whether the user has viewed the opportunity, and when the
// first view happened.
func (s *EngagementService) HasViewed(ctx context.Context, userID, opportunityID string) (bool, *time.Time, error) {
	ctx = ensureContext(ctx)

	var marker models.EventLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND entity_type = ? AND entity_id = ? AND event_type = ?",
			userID, models.EntityOpportunity, opportunityID, models.EventOpportunityView).
		Take(&marker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("engagement service: check view: %w", err)
	}

	viewedAt := marker.CreatedAt
	return true, &viewedAt, nil
}

// ViewHistory returns the user's viewed opportunities, most recent first.
// Markers pointing at opportunities that have since been deleted are dropped,
// so a page may come back shorter than the requested limit.
func (s *EngagementService) ViewHistory(ctx context.Context, userID string, limit, page int) ([]ViewedOpportunity, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("engagement service: user id is required")
	}

	limit, offset := clampPage(limit, page, defaultViewHistoryLimit, 100)

	var markers []models.EventLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND entity_type = ? AND event_type = ?",
			userID, models.EntityOpportunity, models.EventOpportunityView).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&markers).Error; err != nil {
		return nil, fmt.Errorf("engagement service: load view history: %w", err)
	}

	if len(markers) == 0 {
		return []ViewedOpportunity{}, nil
	}

	ids := make([]string, 0, len(markers))
	for _, marker := range markers {
		ids = append(ids, marker.EntityID)
	}

	var opportunities []models.Opportunity
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Organization").
		Where("id IN ?", ids).
		Find(&opportunities).Error; err != nil {
		return nil, fmt.Errorf("engagement service: load opportunities: %w", err)
	}

	byID := make(map[string]models.Opportunity, len(opportunities))
	for _, opportunity := range opportunities {
		byID[opportunity.ID] = opportunity
	}

	history := make([]ViewedOpportunity, 0, len(markers))
	for _, marker := range markers {
		opportunity, ok := byID[marker.EntityID]
		if !ok {
			continue
		}
		history = append(history, ViewedOpportunity{
			Opportunity: opportunity,
			ViewedAt:    marker.CreatedAt,
		})
	}
	return history, nil
}

func (s *EngagementService) ensureOpportunity(ctx context.Context, opportunityID string) error {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Opportunity{}).
		Where("id = ?", opportunityID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("engagement service: find opportunity: %w", err)
	}
	if count == 0 {
		return apperrors.NewNotFound("Opportunity not found")
	}
	return nil
}
