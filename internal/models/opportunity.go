package models

import "time"

// Opportunity lifecycle statuses.
const (
	OpportunityStatusDraft    = "draft"
	OpportunityStatusActive   = "active"
	OpportunityStatusClosed   = "closed"
	OpportunityStatusArchived = "archived"
)

// Opportunity is a catalog entry managed by admins. VisitCount is a monotonic
// counter incremented by the engagement tracker inside the same transaction
// that records the per-user view marker.
type Opportunity struct {
	BaseModel

	Title       string `gorm:"not null;index" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	ExternalURL string `json:"external_url"`

	CategoryID     string        `gorm:"type:uuid;not null;index" json:"category_id"`
	Category       *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	OrganizationID string        `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`

	StartDate *time.Time `json:"start_date"`
	Deadline  *time.Time `gorm:"index" json:"deadline"`
	EndDate   *time.Time `json:"end_date"`

	Status     string `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	VisitCount int64  `gorm:"default:0" json:"visit_count"`
	IsPopular  bool   `gorm:"default:false" json:"is_popular"`
	IsNew      bool   `gorm:"default:false" json:"is_new"`
}
