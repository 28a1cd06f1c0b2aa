package models

// Bookmark is a membership record; existence means the user bookmarked the
// opportunity. The unique pair index makes concurrent toggles safe.
type Bookmark struct {
	BaseModel

	UserID        string `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_pair" json:"user_id"`
	OpportunityID string `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_pair" json:"opportunity_id"`

	Opportunity *Opportunity `gorm:"foreignKey:OpportunityID" json:"opportunity,omitempty"`
}
