package models

// Follow is a one-way subscription from a user to an organization. Existence
// means following; creation triggers a notification, deletion is silent.
type Follow struct {
	BaseModel

	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_follow_pair" json:"user_id"`
	OrganizationID string `gorm:"type:uuid;not null;uniqueIndex:idx_follow_pair" json:"organization_id"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}
