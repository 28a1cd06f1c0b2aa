package models

import "github.com/aruzhans/oppora/internal/privacy"

// Participation records a user's involvement in an opportunity for a given
// year. It carries its own privacy level, independent of the owner's general
// profile settings; only the owner may change it.
type Participation struct {
	BaseModel

	UserID        string `gorm:"type:uuid;not null;uniqueIndex:idx_participation_year" json:"user_id"`
	OpportunityID string `gorm:"type:uuid;not null;uniqueIndex:idx_participation_year" json:"opportunity_id"`
	Year          int    `gorm:"not null;uniqueIndex:idx_participation_year" json:"year"`

	PrivacyLevel privacy.Level `gorm:"type:varchar(16);not null;default:'public'" json:"privacy_level"`
	Feedback     string        `gorm:"type:text" json:"feedback,omitempty"`

	User        *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Opportunity *Opportunity `gorm:"foreignKey:OpportunityID" json:"opportunity,omitempty"`
}
