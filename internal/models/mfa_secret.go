package models

import (
	"time"

	"gorm.io/datatypes"
)

// MFASecret stores an encrypted TOTP secret and hashed backup codes.
type MFASecret struct {
	BaseModel

	UserID      string         `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Secret      string         `gorm:"not null" json:"-"`
	BackupCodes datatypes.JSON `json:"-"`
	ActivatedAt *time.Time     `json:"activated_at"`
	LastUsedAt  *time.Time     `json:"last_used_at"`
}
