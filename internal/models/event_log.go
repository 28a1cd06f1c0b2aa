package models

import "gorm.io/datatypes"

// Event log entity and event types currently recorded.
const (
	EntityOpportunity = "opportunity"

	EventOpportunityView = "opportunity_view"
)

// EventLog is an append-only record of user activity against an entity. For
// opportunity views the unique composite index doubles as the idempotency
// marker: the insert either lands once or conflicts, never double-counts.
type EventLog struct {
	BaseModel

	UserID     string         `gorm:"type:uuid;not null;uniqueIndex:idx_event_marker;index" json:"user_id"`
	EntityType string         `gorm:"type:varchar(32);not null;uniqueIndex:idx_event_marker" json:"entity_type"`
	EntityID   string         `gorm:"type:uuid;not null;uniqueIndex:idx_event_marker" json:"entity_id"`
	EventType  string         `gorm:"type:varchar(32);not null;uniqueIndex:idx_event_marker;index" json:"event_type"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
}
