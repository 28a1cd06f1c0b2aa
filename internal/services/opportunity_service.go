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

const defaultOpportunityLimit = 20

// OpportunityFilters narrows the opportunity listing.
type OpportunityFilters struct {
	CategoryID     string
	OrganizationID string
	Status         string
	Popular        *bool
	New            *bool
	Search         string
	Limit          int
	Page           int
}

// OpportunityInput carries create/update fields for an opportunity. Nil
// pointers on update leave the column untouched.
type OpportunityInput struct {
	Title          string
	Description    string
	ExternalURL    string
	CategoryID     string
	OrganizationID string
	Status         string
	StartDate      *time.Time
	Deadline       *time.Time
	EndDate        *time.Time
	IsPopular      *bool
	IsNew          *bool
}

// OpportunityService manages the opportunity catalog.
type OpportunityService struct {
	db *gorm.DB
}

// NewOpportunityService constructs an OpportunityService.
func NewOpportunityService(db *gorm.DB) (*OpportunityService, error) {
	if db == nil {
		return nil, errors.New("opportunity service: db is required")
	}
	return &OpportunityService{db: db}, nil
}

// List returns a page of opportunities matching the filters plus the total
// match count.
func (s *OpportunityService) List(ctx context.Context, filters OpportunityFilters) ([]models.Opportunity, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Opportunity{})
	if id := strings.TrimSpace(filters.CategoryID); id != "" {
		query = query.Where("category_id = ?", id)
	}
	if id := strings.TrimSpace(filters.OrganizationID); id != "" {
		query = query.Where("organization_id = ?", id)
	}
	if status := strings.TrimSpace(filters.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filters.Popular != nil {
		query = query.Where("is_popular = ?", *filters.Popular)
	}
	if filters.New != nil {
		query = query.Where("is_new = ?", *filters.New)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("opportunity service: count: %w", err)
	}

	limit, offset := clampPage(filters.Limit, filters.Page, defaultOpportunityLimit, 100)

	var rows []models.Opportunity
	if err := query.
		Preload("Category").
		Preload("Organization").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("opportunity service: list: %w", err)
	}

	return rows, total, nil
}

// Get returns one opportunity with its category and organization.
func (s *OpportunityService) Get(ctx context.Context, id string) (*models.Opportunity, error) {
	ctx = ensureContext(ctx)

	var opportunity models.Opportunity
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Organization").
		Take(&opportunity, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Opportunity not found")
		}
		return nil, fmt.Errorf("opportunity service: load: %w", err)
	}
	return &opportunity, nil
}

// Create adds a catalog entry.
func (s *OpportunityService) Create(ctx context.Context, input OpportunityInput) (*models.Opportunity, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	categoryID := strings.TrimSpace(input.CategoryID)
	organizationID := strings.TrimSpace(input.OrganizationID)
	if title == "" || categoryID == "" || organizationID == "" {
		return nil, apperrors.NewBadRequest("Title, category and organization are required")
	}

	status := defaultIfEmpty(strings.TrimSpace(input.Status), models.OpportunityStatusActive)
	if !validOpportunityStatus(status) {
		return nil, apperrors.NewBadRequest("Unknown opportunity status")
	}

	if err := s.ensureReferences(ctx, categoryID, organizationID); err != nil {
		return nil, err
	}

	opportunity := models.Opportunity{
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		ExternalURL:    strings.TrimSpace(input.ExternalURL),
		CategoryID:     categoryID,
		OrganizationID: organizationID,
		Status:         status,
		StartDate:      input.StartDate,
		Deadline:       input.Deadline,
		EndDate:        input.EndDate,
	}
	if input.IsPopular != nil {
		opportunity.IsPopular = *input.IsPopular
	}
	if input.IsNew != nil {
		opportunity.IsNew = *input.IsNew
	}

	if err := s.db.WithContext(ctx).Create(&opportunity).Error; err != nil {
		return nil, fmt.Errorf("opportunity service: create: %w", err)
	}

	return s.Get(ctx, opportunity.ID)
}

// Update modifies a catalog entry.
func (s *OpportunityService) Update(ctx context.Context, id string, input OpportunityInput) (*models.Opportunity, error) {
	ctx = ensureContext(ctx)

	opportunity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if title := strings.TrimSpace(input.Title); title != "" {
		updates["title"] = title
	}
	if input.Description != "" {
		updates["description"] = strings.TrimSpace(input.Description)
	}
	if input.ExternalURL != "" {
		updates["external_url"] = strings.TrimSpace(input.ExternalURL)
	}
	if categoryID := strings.TrimSpace(input.CategoryID); categoryID != "" && categoryID != opportunity.CategoryID {
		if err := s.ensureReferences(ctx, categoryID, opportunity.OrganizationID); err != nil {
			return nil, err
		}
		updates["category_id"] = categoryID
	}
	if organizationID := strings.TrimSpace(input.OrganizationID); organizationID != "" && organizationID != opportunity.OrganizationID {
		if err := s.ensureReferences(ctx, opportunity.CategoryID, organizationID); err != nil {
			return nil, err
		}
		updates["organization_id"] = organizationID
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		if !validOpportunityStatus(status) {
			return nil, apperrors.NewBadRequest("Unknown opportunity status")
		}
		updates["status"] = status
	}
	if input.StartDate != nil {
		updates["start_date"] = input.StartDate
	}
	if input.Deadline != nil {
		updates["deadline"] = input.Deadline
	}
	if input.EndDate != nil {
		updates["end_date"] = input.EndDate
	}
	if input.IsPopular != nil {
		updates["is_popular"] = *input.IsPopular
	}
	if input.IsNew != nil {
		updates["is_new"] = *input.IsNew
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(opportunity).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("opportunity service: update: %w", err)
		}
	}

	return s.Get(ctx, id)
}

// Delete removes a catalog entry together with its engagement rows.
func (s *OpportunityService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	opportunity, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("opportunity_id = ?", opportunity.ID).Delete(&models.Bookmark{}).Error; err != nil {
			return fmt.Errorf("opportunity service: delete bookmarks: %w", err)
		}
		if err := tx.Where("opportunity_id = ?", opportunity.ID).Delete(&models.Application{}).Error; err != nil {
			return fmt.Errorf("opportunity service: delete applications: %w", err)
		}
		if err := tx.Where("opportunity_id = ?", opportunity.ID).Delete(&models.Participation{}).Error; err != nil {
			return fmt.Errorf("opportunity service: delete participations: %w", err)
		}
		if err := tx.Delete(opportunity).Error; err != nil {
			return fmt.Errorf("opportunity service: delete: %w", err)
		}
		return nil
	})
}

func (s *OpportunityService) ensureReferences(ctx context.Context, categoryID, organizationID string) error {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ?", categoryID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("opportunity service: find category: %w", err)
	}
	if count == 0 {
		return apperrors.NewNotFound("Category not found")
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", organizationID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("opportunity service: find organization: %w", err)
	}
	if count == 0 {
		return apperrors.NewNotFound("Organization not found")
	}
	return nil
}

func validOpportunityStatus(status string) bool {
	switch status {
	case models.OpportunityStatusDraft,
		models.OpportunityStatusActive,
		models.OpportunityStatusClosed,
		models.OpportunityStatusArchived:
		return true
	default:
		return false
	}
}
