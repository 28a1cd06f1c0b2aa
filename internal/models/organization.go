package models

// Organization publishes opportunities and can be followed by users.
type Organization struct {
	BaseModel

	Name        string `gorm:"not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Website     string `json:"website"`
	Logo        string `json:"logo"`

	Opportunities []Opportunity `gorm:"foreignKey:OrganizationID" json:"opportunities,omitempty"`
}
