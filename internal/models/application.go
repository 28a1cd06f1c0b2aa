package models

import "time"

// Application tracks a user applying to an opportunity. IsApplied reflects
// whether the user reported completing the external flow; IsConfirmed flips
// once the user answers the confirmation prompt. RemindedAt is stamped by the
// maintenance sweep so each application is reminded about at most once.
type Application struct {
	BaseModel

	UserID        string `gorm:"type:uuid;not null;uniqueIndex:idx_application_pair" json:"user_id"`
	OpportunityID string `gorm:"type:uuid;not null;uniqueIndex:idx_application_pair" json:"opportunity_id"`

	IsApplied   bool       `gorm:"default:false" json:"is_applied"`
	IsConfirmed bool       `gorm:"default:false;index" json:"is_confirmed"`
	RemindedAt  *time.Time `json:"-"`

	Opportunity *Opportunity `gorm:"foreignKey:OpportunityID" json:"opportunity,omitempty"`
}
