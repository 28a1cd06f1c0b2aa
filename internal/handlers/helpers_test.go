package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
)

func seedHandlerUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret",
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedHandlerOpportunity(t *testing.T, db *gorm.DB, title string) models.Opportunity {
	t.Helper()

	category := models.Category{Name: "Category " + title, Slug: "category-" + title}
	require.NoError(t, db.Create(&category).Error)

	organization := models.Organization{Name: "Organization " + title}
	require.NoError(t, db.Create(&organization).Error)

	opportunity := models.Opportunity{
		Title:          title,
		CategoryID:     category.ID,
		OrganizationID: organization.ID,
		Status:         models.OpportunityStatusActive,
	}
	require.NoError(t, db.Create(&opportunity).Error)
	return opportunity
}
