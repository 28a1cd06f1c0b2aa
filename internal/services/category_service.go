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

// CategoryInput carries create/update fields for a category.
type CategoryInput struct {
	Name string
	Slug string
}

// CategoryService manages opportunity categories.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(db *gorm.DB) (*CategoryService, error) {
	if db == nil {
		return nil, errors.New("category service: db is required")
	}
	return &CategoryService{db: db}, nil
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	ctx = ensureContext(ctx)

	var rows []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("category service: list: %w", err)
	}
	return rows, nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	ctx = ensureContext(ctx)

	var category models.Category
	if err := s.db.WithContext(ctx).Take(&category, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Category not found")
		}
		return nil, fmt.Errorf("category service: load: %w", err)
	}
	return &category, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("Name is required")
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = slugify(name)
	}

	category := models.Category{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("Category already exists", nil)
		}
		return nil, fmt.Errorf("category service: create: %w", err)
	}
	return &category, nil
}

// Update renames a category.
func (s *CategoryService) Update(ctx context.Context, id string, input CategoryInput) (*models.Category, error) {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if slug := strings.TrimSpace(input.Slug); slug != "" {
		updates["slug"] = slug
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil, apperrors.NewConflict("Category already exists", nil)
			}
			return nil, fmt.Errorf("category service: update: %w", err)
		}
	}

	return s.Get(ctx, id)
}

// Delete removes a category. Deletion is refused while opportunities still
// reference it; the conflict carries the dependent count.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var dependents int64
	if err := s.db.WithContext(ctx).
		Model(&models.Opportunity{}).
		Where("category_id = ?", category.ID).
		Count(&dependents).Error; err != nil {
		return fmt.Errorf("category service: count opportunities: %w", err)
	}
	if dependents > 0 {
		return apperrors.NewConflict("Category still has opportunities", map[string]any{
			"count": dependents,
		})
	}

	if err := s.db.WithContext(ctx).Delete(category).Error; err != nil {
		return fmt.Errorf("category service: delete: %w", err)
	}
	return nil
}

func slugify(value string) string {
	slug := strings.ToLower(strings.TrimSpace(value))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	return strings.Trim(slug, "-")
}
