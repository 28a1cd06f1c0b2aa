package models

import (
	"time"

	"github.com/aruzhans/oppora/internal/privacy"
)

// User describes a platform account together with its profile fields and the
// privacy policy gating each field category. Per-field overrides are nullable;
// a nil override falls back to PrivacyLevel.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
	Bio       string `gorm:"type:text" json:"bio"`

	Education  string `gorm:"type:text" json:"education,omitempty"`
	Experience string `gorm:"type:text" json:"experience,omitempty"`
	Skills     string `gorm:"type:text" json:"skills,omitempty"`
	ContactURL string `json:"contact_url,omitempty"`

	PrivacyLevel      privacy.Level  `gorm:"type:varchar(16);default:'public'" json:"privacy_level"`
	EducationPrivacy  *privacy.Level `gorm:"type:varchar(16)" json:"education_privacy,omitempty"`
	ExperiencePrivacy *privacy.Level `gorm:"type:varchar(16)" json:"experience_privacy,omitempty"`
	SkillsPrivacy     *privacy.Level `gorm:"type:varchar(16)" json:"skills_privacy,omitempty"`
	ContactURLPrivacy *privacy.Level `gorm:"type:varchar(16)" json:"contact_url_privacy,omitempty"`

	IsAdmin  bool `gorm:"default:false" json:"is_admin"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	TwoFactorEnabled bool       `gorm:"default:false" json:"two_factor_enabled"`
	MFASecret        *MFASecret `gorm:"foreignKey:UserID" json:"-"`

	TelegramChatID string `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"-"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`

	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`
}
