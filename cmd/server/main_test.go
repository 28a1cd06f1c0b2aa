package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aruzhans/oppora/internal/app"
)

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = ""
	cfg.Database.Path = " ./data/oppora.sqlite "

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "sqlite", dbCfg.Driver)
	require.Equal(t, "./data/oppora.sqlite", dbCfg.Path)

	cfg.Database.Driver = "PostgreSQL"
	cfg.Database.Postgres = app.DBAuthConfig{
		Host:     "db.internal",
		Port:     5432,
		Database: "oppora",
		Username: "oppora",
		Password: "secret",
	}

	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "oppora", dbCfg.Name)
}

func TestEnsureSecretsPresent(t *testing.T) {
	cfg := &app.Config{}
	require.Error(t, ensureSecretsPresent(cfg))

	cfg.Auth.JWT.Secret = "jwt-secret"
	require.Error(t, ensureSecretsPresent(cfg))

	// 64 hex characters decode to a 32 byte AES key.
	cfg.MFA.EncryptionKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	require.NoError(t, ensureSecretsPresent(cfg))

	cfg.MFA.EncryptionKey = "too-short"
	require.Error(t, ensureSecretsPresent(cfg))
}
