package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "https://oppora.example.com", cfg.Server.BaseURL)
	require.True(t, cfg.Server.CSRF.Enabled)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "oppora-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 1440*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 64, cfg.Auth.Session.RefreshLength)
	require.Equal(t, 7, cfg.Auth.Local.LockoutThreshold)
	require.Equal(t, 20*time.Minute, cfg.Auth.Local.LockoutDuration)
	require.Equal(t, 2*time.Hour, cfg.Auth.PasswordReset.TokenTTL)

	require.Equal(t, "Oppora Test", cfg.MFA.Issuer)
	key, err := DecodeKey(cfg.MFA.EncryptionKey)
	require.NoError(t, err)
	require.Len(t, key, 32)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.True(t, cfg.Telegram.Enabled)
	require.Equal(t, "12345:token", cfg.Telegram.BotToken)
	require.Equal(t, 8*time.Second, cfg.Telegram.Timeout)

	require.Equal(t, 48*time.Hour, cfg.Applications.ConfirmGrace)

	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 30m", cfg.Maintenance.ReminderSchedule)
	// Untouched keys keep their defaults.
	require.Equal(t, "@hourly", cfg.Maintenance.SessionSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, time.Hour, cfg.Auth.PasswordReset.TokenTTL)
	require.Equal(t, 24*time.Hour, cfg.Applications.ConfirmGrace)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestApplyRuntimeDefaults(t *testing.T) {
	cfg := &Config{}

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.True(t, generated["auth.jwt.secret"])
	require.True(t, generated["mfa.encryption_key"])
	require.NotEmpty(t, cfg.Auth.JWT.Secret)

	key, err := DecodeKey(cfg.MFA.EncryptionKey)
	require.NoError(t, err)
	require.Len(t, key, 32)

	// A second pass leaves supplied values alone.
	again, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, again)
}
