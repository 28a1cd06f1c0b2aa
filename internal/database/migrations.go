package database

import (
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.MFASecret{},
		&models.PasswordResetToken{},
		&models.Organization{},
		&models.Category{},
		&models.Opportunity{},
		&models.Friendship{},
		&models.FriendRequest{},
		&models.Participation{},
		&models.Bookmark{},
		&models.Follow{},
		&models.Application{},
		&models.EventLog{},
		&models.Notification{},
		&models.CacheEntry{},
	)
}

// SeedData populates the default opportunity categories.
func SeedData(db *gorm.DB) error {
	categories := []models.Category{
		{BaseModel: models.BaseModel{ID: "scholarship"}, Name: "Scholarship", Slug: "scholarship"},
		{BaseModel: models.BaseModel{ID: "internship"}, Name: "Internship", Slug: "internship"},
		{BaseModel: models.BaseModel{ID: "job"}, Name: "Job", Slug: "job"},
		{BaseModel: models.BaseModel{ID: "workshop"}, Name: "Workshop", Slug: "workshop"},
	}

	for _, category := range categories {
		err := db.Where(models.Category{Slug: category.Slug}).
			Attrs(category).
			FirstOrCreate(&models.Category{}).Error
		if err != nil {
			return err
		}
	}

	return nil
}
