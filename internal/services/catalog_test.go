package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/models"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
)

func TestCategoryDeleteBlockedByOpportunities(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCategoryService(db)
	require.NoError(t, err)

	ctx := context.Background()
	opportunity := seedOpportunity(t, db, "Blocked delete")

	err = svc.Delete(ctx, opportunity.CategoryID)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)
	require.EqualValues(t, int64(1), appErr.Details["count"])

	// With the dependent gone, delete succeeds.
	require.NoError(t, db.Delete(&models.Opportunity{}, "id = ?", opportunity.ID).Error)
	require.NoError(t, svc.Delete(ctx, opportunity.CategoryID))
}

func TestCategoryCreateSlugAndConflict(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCategoryService(db)
	require.NoError(t, err)

	ctx := context.Background()
	category, err := svc.Create(ctx, CategoryInput{Name: "Summer Schools"})
	require.NoError(t, err)
	require.Equal(t, "summer-schools", category.Slug)

	_, err = svc.Create(ctx, CategoryInput{Name: "Summer Schools"})
	requireAppErrorStatus(t, err, 409)
}

func TestOpportunityListFilters(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewOpportunityService(db)
	require.NoError(t, err)

	ctx := context.Background()
	first := seedOpportunity(t, db, "Scholarship Alpha")
	second := seedOpportunity(t, db, "Internship Beta")
	require.NoError(t, db.Model(&models.Opportunity{}).
		Where("id = ?", second.ID).
		Updates(map[string]any{"is_popular": true, "status": models.OpportunityStatusClosed}).Error)

	all, total, err := svc.List(ctx, OpportunityFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, all, 2)

	byCategory, total, err := svc.List(ctx, OpportunityFilters{CategoryID: first.CategoryID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, first.ID, byCategory[0].ID)

	popular := true
	byPopular, total, err := svc.List(ctx, OpportunityFilters{Popular: &popular})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, second.ID, byPopular[0].ID)

	byStatus, total, err := svc.List(ctx, OpportunityFilters{Status: models.OpportunityStatusActive})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, first.ID, byStatus[0].ID)

	bySearch, total, err := svc.List(ctx, OpportunityFilters{Search: "beta"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, second.ID, bySearch[0].ID)
}

func TestOpportunityCreateValidatesReferences(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewOpportunityService(db)
	require.NoError(t, err)

	ctx := context.Background()
	existing := seedOpportunity(t, db, "Reference donor")

	_, err = svc.Create(ctx, OpportunityInput{
		Title:          "Missing category",
		CategoryID:     "nope",
		OrganizationID: existing.OrganizationID,
	})
	requireAppErrorStatus(t, err, 404)

	_, err = svc.Create(ctx, OpportunityInput{
		Title:          "Bad status",
		CategoryID:     existing.CategoryID,
		OrganizationID: existing.OrganizationID,
		Status:         "paused",
	})
	requireAppErrorStatus(t, err, 400)

	created, err := svc.Create(ctx, OpportunityInput{
		Title:          "Valid one",
		CategoryID:     existing.CategoryID,
		OrganizationID: existing.OrganizationID,
	})
	require.NoError(t, err)
	require.Equal(t, models.OpportunityStatusActive, created.Status)
	require.NotNil(t, created.Category)
}

func TestOpportunityDeleteCascadesEngagement(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewOpportunityService(db)
	require.NoError(t, err)

	ctx := context.Background()
	user := seedUser(t, db, "engaged")
	opportunity := seedOpportunity(t, db, "To be removed")

	require.NoError(t, db.Create(&models.Bookmark{UserID: user.ID, OpportunityID: opportunity.ID}).Error)
	require.NoError(t, db.Create(&models.Application{UserID: user.ID, OpportunityID: opportunity.ID}).Error)

	require.NoError(t, svc.Delete(ctx, opportunity.ID))

	var bookmarks, applications int64
	require.NoError(t, db.Model(&models.Bookmark{}).Count(&bookmarks).Error)
	require.NoError(t, db.Model(&models.Application{}).Count(&applications).Error)
	require.Zero(t, bookmarks)
	require.Zero(t, applications)
}

func TestOrganizationDeleteBlockedByOpportunities(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewOrganizationService(db)
	require.NoError(t, err)

	ctx := context.Background()
	opportunity := seedOpportunity(t, db, "Org keeper")

	err = svc.Delete(ctx, opportunity.OrganizationID)
	requireAppErrorStatus(t, err, 409)

	require.NoError(t, db.Delete(&models.Opportunity{}, "id = ?", opportunity.ID).Error)
	require.NoError(t, svc.Delete(ctx, opportunity.OrganizationID))
}
