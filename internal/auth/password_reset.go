package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
	"github.com/aruzhans/oppora/pkg/crypto"
	"github.com/aruzhans/oppora/pkg/logger"
	"github.com/aruzhans/oppora/pkg/mail"
)

// DefaultResetTokenTTL is the fallback lifetime for password reset tokens.
const DefaultResetTokenTTL = time.Hour

var (
	// ErrResetTokenInvalid is returned when no matching reset token exists.
	ErrResetTokenInvalid = errors.New("password reset: invalid token")
	// ErrResetTokenExpired is returned once for an expired token; the token is
	// deleted on presentation, so a retry yields ErrResetTokenInvalid.
	ErrResetTokenExpired = errors.New("password reset: token expired")
)

// PasswordResetConfig tunes token lifetime and delivery for the reset flow.
type PasswordResetConfig struct {
	TokenTTL time.Duration
	BaseURL  string
	From     string
	Clock    func() time.Time
}

// PasswordResetService issues single-use reset tokens and applies new passwords.
type PasswordResetService struct {
	db      *gorm.DB
	mailer  mail.Mailer
	ttl     time.Duration
	baseURL string
	from    string
	now     func() time.Time
}

// NewPasswordResetService builds the reset flow on top of the database and mailer.
// A nil mailer is allowed; token issuance then skips email delivery.
func NewPasswordResetService(db *gorm.DB, mailer mail.Mailer, cfg PasswordResetConfig) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset: db is required")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &PasswordResetService{
		db:      db,
		mailer:  mailer,
		ttl:     ttl,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		from:    strings.TrimSpace(cfg.From),
		now:     clock,
	}, nil
}

// RequestReset issues a fresh token for the account behind the email address
// and mails the reset link. Unknown addresses return no error so the endpoint
// does not reveal which emails are registered.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("password reset: email is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("password reset: find user: %w", err)
	}

	token, err := crypto.GenerateToken(32)
	if err != nil {
		return fmt.Errorf("password reset: generate token: %w", err)
	}

	now := s.now()
	record := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(s.ttl),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return fmt.Errorf("password reset: store token: %w", err)
	}

	s.deliver(ctx, &user, token)
	return nil
}

// ResetPassword consumes the token and replaces the user's password. Every
// active session for the user is left to the caller to revoke.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrResetTokenInvalid
	}
	if newPassword == "" {
		return nil, errors.New("password reset: new password is required")
	}

	var record models.PasswordResetToken
	err := s.db.WithContext(ctx).Where("token = ?", token).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResetTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("password reset: find token: %w", err)
	}

	now := s.now()
	if record.ExpiresAt.Before(now) || record.UsedAt != nil {
		// Expired or spent tokens are removed the moment they surface, so the
		// same token cannot be probed twice.
		if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil {
			return nil, fmt.Errorf("password reset: delete stale token: %w", err)
		}
		return nil, ErrResetTokenExpired
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", record.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("password reset: find user: %w", err)
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("password reset: hash password: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password", hashed).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("password reset: apply password: %w", err)
	}

	user.Password = hashed
	return &user, nil
}

// CleanupExpired removes tokens past their expiry.
func (s *PasswordResetService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("password reset: cleanup: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *PasswordResetService) deliver(ctx context.Context, user *models.User, token string) {
	if s.mailer == nil {
		return
	}

	link := token
	if s.baseURL != "" {
		link = fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	}

	msg := mail.Message{
		From:    s.from,
		To:      []string{user.Email},
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nA password reset was requested for your account. Use the link below within %s:\n\n%s\n\nIf you did not request this, you can ignore this email.\n",
			displayName(user), s.ttl, link,
		),
	}

	if err := s.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		logger.Warn("password reset email delivery failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
}

func displayName(user *models.User) string {
	if name := strings.TrimSpace(user.FirstName); name != "" {
		return name
	}
	return user.Username
}
