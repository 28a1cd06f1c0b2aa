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

// OrganizationInput carries create/update fields for an organization.
type OrganizationInput struct {
	Name        string
	Description string
	Website     string
	Logo        string
}

// OrganizationService manages publishing organizations.
type OrganizationService struct {
	db *gorm.DB
}

// NewOrganizationService constructs an OrganizationService.
func NewOrganizationService(db *gorm.DB) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	return &OrganizationService{db: db}, nil
}

// List returns all organizations ordered by name.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	ctx = ensureContext(ctx)

	var rows []models.Organization
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("organization service: list: %w", err)
	}
	return rows, nil
}

// Get returns one organization.
func (s *OrganizationService) Get(ctx context.Context, id string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var organization models.Organization
	if err := s.db.WithContext(ctx).Take(&organization, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Organization not found")
		}
		return nil, fmt.Errorf("organization service: load: %w", err)
	}
	return &organization, nil
}

// Create adds an organization.
func (s *OrganizationService) Create(ctx context.Context, input OrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("Name is required")
	}

	organization := models.Organization{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Website:     strings.TrimSpace(input.Website),
		Logo:        strings.TrimSpace(input.Logo),
	}

	if err := s.db.WithContext(ctx).Create(&organization).Error; err != nil {
		return nil, fmt.Errorf("organization service: create: %w", err)
	}
	return &organization, nil
}

// Update modifies an organization.
func (s *OrganizationService) Update(ctx context.Context, id string, input OrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	organization, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.Description != "" {
		updates["description"] = strings.TrimSpace(input.Description)
	}
	if input.Website != "" {
		updates["website"] = strings.TrimSpace(input.Website)
	}
	if input.Logo != "" {
		updates["logo"] = strings.TrimSpace(input.Logo)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(organization).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("organization service: update: %w", err)
		}
	}

	return s.Get(ctx, id)
}

// Delete removes an organization if no opportunities reference it.
func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	organization, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var dependents int64
	if err := s.db.WithContext(ctx).
		Model(&models.Opportunity{}).
		Where("organization_id = ?", organization.ID).
		Count(&dependents).Error; err != nil {
		return fmt.Errorf("organization service: count opportunities: %w", err)
	}
	if dependents > 0 {
		return apperrors.NewConflict("Organization still has opportunities", map[string]any{
			"count": dependents,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", organization.ID).Delete(&models.Follow{}).Error; err != nil {
			return fmt.Errorf("organization service: delete follows: %w", err)
		}
		if err := tx.Delete(organization).Error; err != nil {
			return fmt.Errorf("organization service: delete: %w", err)
		}
		return nil
	})
}
