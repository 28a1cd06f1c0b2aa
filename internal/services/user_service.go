package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
	"github.com/aruzhans/oppora/internal/privacy"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
)

// UserProfileDTO is the privacy-filtered public view of a user. Gated fields
// are omitted rather than blanked, so clients can distinguish "hidden" from
// "empty" only for their own profile.
type UserProfileDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Education  *string `json:"education,omitempty"`
	Experience *string `json:"experience,omitempty"`
	Skills     *string `json:"skills,omitempty"`
	ContactURL *string `json:"contact_url,omitempty"`

	IsFriend bool `json:"is_friend"`
	IsSelf   bool `json:"is_self"`
}

// UpdateProfileInput carries the profile fields a user may change. Nil fields
// are left untouched.
type UpdateProfileInput struct {
	FirstName  *string
	LastName   *string
	Avatar     *string
	Bio        *string
	Education  *string
	Experience *string
	Skills     *string
	ContactURL *string
}

// PrivacySettingsInput updates the profile-wide default and the per-field
// overrides. A nil override clears the field back to the default.
type PrivacySettingsInput struct {
	Default    privacy.Level
	Education  *privacy.Level
	Experience *privacy.Level
	Skills     *privacy.Level
	ContactURL *privacy.Level
}

// UserService exposes profiles with privacy filtering applied.
type UserService struct {
	db      *gorm.DB
	friends *FriendService
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, friendService *FriendService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if friendService == nil {
		return nil, errors.New("user service: friend service is required")
	}
	return &UserService{db: db, friends: friendService}, nil
}

// Get returns the raw user record.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", strings.TrimSpace(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("User not found")
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// GetProfile returns the target user's profile as seen by the viewer. Each
// gated field applies its own override when set, falling back to the profile
// default; unknown viewers see public material only. A relationship lookup
// failure propagates instead of defaulting open.
func (s *UserService) GetProfile(ctx context.Context, targetID, viewerID string) (*UserProfileDTO, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}

	viewer := privacy.Anonymous
	viewerID = strings.TrimSpace(viewerID)
	switch {
	case viewerID == "":
	case viewerID == user.ID:
		viewer = privacy.Viewer{IsSelf: true, IsFriend: true}
	default:
		isFriend, err := s.friends.AreFriends(ctx, user.ID, viewerID)
		if err != nil {
			return nil, err
		}
		viewer = privacy.Viewer{IsFriend: isFriend}
	}

	profile := &UserProfileDTO{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Avatar:    user.Avatar,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt,
		IsFriend:  viewer.IsFriend && !viewer.IsSelf,
		IsSelf:    viewer.IsSelf,
	}

	fallback := user.PrivacyLevel
	if !fallback.Valid() {
		fallback = privacy.DefaultLevel
	}

	if privacy.Visible(privacy.Effective(user.EducationPrivacy, fallback), viewer) {
		profile.Education = &user.Education
	}
	if privacy.Visible(privacy.Effective(user.ExperiencePrivacy, fallback), viewer) {
		profile.Experience = &user.Experience
	}
	if privacy.Visible(privacy.Effective(user.SkillsPrivacy, fallback), viewer) {
		profile.Skills = &user.Skills
	}
	if privacy.Visible(privacy.Effective(user.ContactURLPrivacy, fallback), viewer) {
		profile.ContactURL = &user.ContactURL
	}

	return profile, nil
}

// UpdateProfile applies the supplied field changes to the user's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	assign := func(column string, value *string) {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}
	assign("first_name", input.FirstName)
	assign("last_name", input.LastName)
	assign("avatar", input.Avatar)
	assign("bio", input.Bio)
	assign("education", input.Education)
	assign("experience", input.Experience)
	assign("skills", input.Skills)
	assign("contact_url", input.ContactURL)

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}

	return s.Get(ctx, userID)
}

// UpdatePrivacy replaces the user's privacy settings.
func (s *UserService) UpdatePrivacy(ctx context.Context, userID string, input PrivacySettingsInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	if !input.Default.Valid() {
		return nil, apperrors.NewBadRequest("Unknown privacy level")
	}
	for _, override := range []*privacy.Level{input.Education, input.Experience, input.Skills, input.ContactURL} {
		if override != nil && !override.Valid() {
			return nil, apperrors.NewBadRequest("Unknown privacy level")
		}
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"privacy_level":       input.Default,
		"education_privacy":   input.Education,
		"experience_privacy":  input.Experience,
		"skills_privacy":      input.Skills,
		"contact_url_privacy": input.ContactURL,
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update privacy: %w", err)
	}

	return s.Get(ctx, userID)
}

// SetTelegramChatID links or clears the user's Telegram chat for notification
// delivery.
func (s *UserService) SetTelegramChatID(ctx context.Context, userID, chatID string) error {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(user).
		Update("telegram_chat_id", strings.TrimSpace(chatID)).Error; err != nil {
		return fmt.Errorf("user service: set telegram chat: %w", err)
	}
	return nil
}

// SetTwoFactorEnabled flips the 2FA flag on the account.
func (s *UserService) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(user).
		Update("two_factor_enabled", enabled).Error; err != nil {
		return fmt.Errorf("user service: set two factor: %w", err)
	}
	return nil
}
