package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
)

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedOpportunity(t *testing.T, db *gorm.DB, title string) *models.Opportunity {
	t.Helper()

	category := &models.Category{Name: "Cat " + title, Slug: "cat-" + slugify(title)}
	require.NoError(t, db.Create(category).Error)

	organization := &models.Organization{Name: "Org " + title}
	require.NoError(t, db.Create(organization).Error)

	opportunity := &models.Opportunity{
		Title:          title,
		CategoryID:     category.ID,
		OrganizationID: organization.ID,
		Status:         models.OpportunityStatusActive,
	}
	require.NoError(t, db.Create(opportunity).Error)
	return opportunity
}

func makeFriends(t *testing.T, db *gorm.DB, a, b string) {
	t.Helper()

	require.NoError(t, db.Create(&models.Friendship{UserID: a, FriendID: b}).Error)
	require.NoError(t, db.Create(&models.Friendship{UserID: b, FriendID: a}).Error)
}
