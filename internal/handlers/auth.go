package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/aruzhans/oppora/internal/auth"
	"github.com/aruzhans/oppora/internal/auth/mfa"
	"github.com/aruzhans/oppora/internal/auth/providers"
	"github.com/aruzhans/oppora/internal/models"
	appErrors "github.com/aruzhans/oppora/pkg/errors"
	"github.com/aruzhans/oppora/pkg/metrics"
	"github.com/aruzhans/oppora/pkg/response"
)

// AuthHandler manages authentication flows (register/login/2fa/refresh/logout/me).
type AuthHandler struct {
	db       *gorm.DB
	jwt      *iauth.JWTService
	sessions *iauth.SessionService
	totp     *mfa.TOTPService
	resets   *iauth.PasswordResetService
}

func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService, sessions *iauth.SessionService, totp *mfa.TOTPService, resets *iauth.PasswordResetService) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt, sessions: sessions, totp: totp, resets: resets}
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type twoFactorRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code" validate:"omitempty,min=6,max=16"`
	BackupCode     string `json:"backup_code" validate:"omitempty,min=8,max=32"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lp, err := providers.NewLocalProvider(h.db, providers.LocalConfig{})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	user, err := lp.Register(providers.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, providers.ErrUserExists) {
			response.Error(c, appErrors.NewConflict("An account with that username or email already exists", nil))
			return
		}
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusCreated, userPayload(user))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lp, err := providers.NewLocalProvider(h.db, providers.LocalConfig{})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	user, err := lp.Authenticate(providers.AuthenticateInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		// Normalise auth errors to 401
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if user.TwoFactorEnabled {
		challenge, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
			UserID:   user.ID,
			Metadata: map[string]any{iauth.MetadataTwoFactorPending: true},
		})
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
			return
		}

		metrics.AuthAttempts.WithLabelValues("challenge").Inc()
		response.Success(c, http.StatusOK, gin.H{
			"two_factor_required": true,
			"challenge_token":     challenge,
		})
		return
	}

	h.issueSession(c, user)
}

// POST /api/auth/2fa
//
// Completes a login that was answered with a two-factor challenge. The
// challenge token proves the password step succeeded; a TOTP code or a
// backup code proves possession of the second factor.
func (h *AuthHandler) TwoFactor(c *gin.Context) {
	var req twoFactorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Code == "" && req.BackupCode == "" {
		response.Error(c, appErrors.NewBadRequest("a TOTP code or backup code is required"))
		return
	}

	claims, err := h.jwt.ValidateAccessToken(strings.TrimSpace(req.ChallengeToken))
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if pending, _ := claims.Metadata[iauth.MetadataTwoFactorPending].(bool); !pending || claims.SessionID != "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var ok bool
	if req.Code != "" {
		ok, err = h.totp.VerifyCode(claims.UserID, req.Code)
	} else {
		ok, err = h.totp.UseBackupCode(claims.UserID, req.BackupCode)
	}
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	if !ok {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var user models.User
	if err := h.db.Take(&user, "id = ?", claims.UserID).Error; err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	h.issueSession(c, &user)
}

func (h *AuthHandler) issueSession(c *gin.Context, user *models.User) {
	pair, _, err := h.sessions.CreateSession(user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	metrics.ActiveSessions.Inc()

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user":   userPayload(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid := currentSessionID(c)
	if sid == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(sid); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.ActiveSessions.Dec()
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var user models.User
	if err := h.db.Take(&user, "id = ?", userID).Error; err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, userPayload(&user))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// PUT /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lp, err := providers.NewLocalProvider(h.db, providers.LocalConfig{})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	if err := lp.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, providers.ErrInvalidCredentials) {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"changed": true})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/forgot-password
//
// Always answers 200 so the endpoint cannot be used to probe which email
// addresses have accounts.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.RequestReset(requestContext(c), req.Email); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"requested": true})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.resets.ResetPassword(requestContext(c), strings.TrimSpace(req.Token), req.NewPassword)
	switch {
	case err == nil:
		// A reset invalidates every session issued under the old password.
		if err := h.sessions.RevokeUserSessions(user.ID); err != nil {
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"reset": true})
	case errors.Is(err, iauth.ErrResetTokenExpired):
		response.Error(c, appErrors.NewBadRequest("Reset link has expired, request a new one"))
	case errors.Is(err, iauth.ErrResetTokenInvalid):
		response.Error(c, appErrors.NewBadRequest("Reset link is invalid"))
	default:
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
	}
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":                 user.ID,
		"username":           user.Username,
		"email":              user.Email,
		"first_name":         user.FirstName,
		"last_name":          user.LastName,
		"avatar":             user.Avatar,
		"is_admin":           user.IsAdmin,
		"is_active":          user.IsActive,
		"two_factor_enabled": user.TwoFactorEnabled,
		"created_at":         user.CreatedAt.Format(time.RFC3339),
	}
}
