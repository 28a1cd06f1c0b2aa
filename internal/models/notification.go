package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types emitted by the platform.
const (
	NotificationFriendRequest   = "friend.request"
	NotificationFriendAccepted  = "friend.accepted"
	NotificationOrgFollowed     = "organization.followed"
	NotificationConfirmReminder = "application.confirm_reminder"
)

// Notification represents an in-app notification for a user. Metadata carries
// the related entity reference so clients can deep-link.
type Notification struct {
	BaseModel

	UserID          string         `gorm:"type:uuid;index;not null" json:"user_id"`
	Type            string         `gorm:"type:varchar(64);not null" json:"type"`
	Title           string         `gorm:"type:varchar(255);not null" json:"title"`
	Message         string         `gorm:"type:text" json:"message"`
	RelatedEntityID string         `gorm:"type:uuid" json:"related_entity_id,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
