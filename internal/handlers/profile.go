package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/auth/mfa"
	"github.com/aruzhans/oppora/internal/privacy"
	"github.com/aruzhans/oppora/internal/services"
	appErrors "github.com/aruzhans/oppora/pkg/errors"
	"github.com/aruzhans/oppora/pkg/response"
)

// ProfileHandler serves the authenticated user's own profile, privacy
// settings and two-factor enrollment.
type ProfileHandler struct {
	users *services.UserService
	totp  *mfa.TOTPService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(db *gorm.DB, totp *mfa.TOTPService) (*ProfileHandler, error) {
	notificationService, err := services.NewNotificationService(db, nil, nil)
	if err != nil {
		return nil, err
	}
	friendService, err := services.NewFriendService(db, notificationService)
	if err != nil {
		return nil, err
	}
	userService, err := services.NewUserService(db, friendService)
	if err != nil {
		return nil, err
	}
	return &ProfileHandler{users: userService, totp: totp}, nil
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.users.GetProfile(requestContext(c), userID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.users.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"profile": profile,
		"privacy": gin.H{
			"default":     user.PrivacyLevel,
			"education":   user.EducationPrivacy,
			"experience":  user.ExperiencePrivacy,
			"skills":      user.SkillsPrivacy,
			"contact_url": user.ContactURLPrivacy,
		},
		"two_factor_enabled": user.TwoFactorEnabled,
		"telegram_linked":    user.TelegramChatID != "",
	})
}

type updateProfileRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,max=100"`
	Avatar     *string `json:"avatar" validate:"omitempty,max=512"`
	Bio        *string `json:"bio" validate:"omitempty,max=2048"`
	Education  *string `json:"education" validate:"omitempty,max=4096"`
	Experience *string `json:"experience" validate:"omitempty,max=4096"`
	Skills     *string `json:"skills" validate:"omitempty,max=2048"`
	ContactURL *string `json:"contact_url" validate:"omitempty,max=512"`
}

// PATCH /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(requestContext(c), userID, services.UpdateProfileInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Avatar:     req.Avatar,
		Bio:        req.Bio,
		Education:  req.Education,
		Experience: req.Experience,
		Skills:     req.Skills,
		ContactURL: req.ContactURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

type updatePrivacyRequest struct {
	Default    string  `json:"default" validate:"required"`
	Education  *string `json:"education"`
	Experience *string `json:"experience"`
	Skills     *string `json:"skills"`
	ContactURL *string `json:"contact_url"`
}

// PUT /api/profile/privacy
func (h *ProfileHandler) UpdatePrivacy(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updatePrivacyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdatePrivacy(requestContext(c), userID, services.PrivacySettingsInput{
		Default:    privacy.Level(strings.TrimSpace(req.Default)),
		Education:  levelPtr(req.Education),
		Experience: levelPtr(req.Experience),
		Skills:     levelPtr(req.Skills),
		ContactURL: levelPtr(req.ContactURL),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"default":     user.PrivacyLevel,
		"education":   user.EducationPrivacy,
		"experience":  user.ExperiencePrivacy,
		"skills":      user.SkillsPrivacy,
		"contact_url": user.ContactURLPrivacy,
	})
}

func levelPtr(s *string) *privacy.Level {
	if s == nil {
		return nil
	}
	level := privacy.Level(strings.TrimSpace(*s))
	return &level
}

type linkTelegramRequest struct {
	ChatID string `json:"chat_id" validate:"omitempty,max=64"`
}

// PATCH /api/profile/telegram
//
// An empty chat_id unlinks the account.
func (h *ProfileHandler) LinkTelegram(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req linkTelegramRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.SetTelegramChatID(requestContext(c), userID, req.ChatID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"linked": strings.TrimSpace(req.ChatID) != ""})
}

// POST /api/profile/2fa/setup
//
// Generates a fresh TOTP secret and backup codes. The secret is not active
// until the user proves possession by activating with a valid code.
func (h *ProfileHandler) TwoFactorSetup(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.totp == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	user, err := h.users.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	key, backupCodes, err := h.totp.GenerateSecret(user.ID, user.Username)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	qr, err := h.totp.GenerateQRCode(key)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"secret":       key.Secret(),
		"otpauth_url":  key.URL(),
		"qr_code":      base64.StdEncoding.EncodeToString(qr),
		"backup_codes": backupCodes,
	})
}

type twoFactorActivateRequest struct {
	Code string `json:"code" validate:"required,min=6,max=8"`
}

// POST /api/profile/2fa/activate
func (h *ProfileHandler) TwoFactorActivate(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.totp == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	var req twoFactorActivateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ok, err := h.totp.VerifyCode(userID, req.Code)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	if !ok {
		response.Error(c, appErrors.NewBadRequest("invalid TOTP code"))
		return
	}

	if err := h.totp.MarkActivated(userID); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	if err := h.users.SetTwoFactorEnabled(requestContext(c), userID, true); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enabled": true})
}

type twoFactorDisableRequest struct {
	Code       string `json:"code" validate:"omitempty,min=6,max=8"`
	BackupCode string `json:"backup_code" validate:"omitempty,min=8,max=32"`
}

// POST /api/profile/2fa/disable
//
// Disabling requires a current TOTP code or an unused backup code so a
// hijacked session cannot silently strip the second factor.
func (h *ProfileHandler) TwoFactorDisable(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.totp == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	var req twoFactorDisableRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Code == "" && req.BackupCode == "" {
		response.Error(c, appErrors.NewBadRequest("a TOTP code or backup code is required"))
		return
	}

	var (
		ok  bool
		err error
	)
	if req.Code != "" {
		ok, err = h.totp.VerifyCode(userID, req.Code)
	} else {
		ok, err = h.totp.UseBackupCode(userID, req.BackupCode)
	}
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.totp.Disable(userID); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	if err := h.users.SetTwoFactorEnabled(requestContext(c), userID, false); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enabled": false})
}
