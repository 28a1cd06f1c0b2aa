package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/aruzhans/oppora/internal/api"
	"github.com/aruzhans/oppora/internal/app"
	"github.com/aruzhans/oppora/internal/app/maintenance"
	iauth "github.com/aruzhans/oppora/internal/auth"
	"github.com/aruzhans/oppora/internal/auth/mfa"
	"github.com/aruzhans/oppora/internal/cache"
	"github.com/aruzhans/oppora/internal/database"
	"github.com/aruzhans/oppora/internal/middleware"
	"github.com/aruzhans/oppora/internal/notifications"
	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/logger"
	"github.com/aruzhans/oppora/pkg/mail"
	"github.com/aruzhans/oppora/pkg/telegram"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisClient
	SessionSvc *iauth.SessionService
	Hub        *notifications.Hub
	Sweeper    *maintenance.Sweeper
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services, and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionCfg := cfg.Auth.SessionServiceConfig()
	switch {
	case stack.Redis != nil:
		sessionCfg.Cache = iauth.NewRedisSessionCache(stack.Redis)
	case dbStore != nil:
		sessionCfg.Cache = iauth.NewDatabaseSessionCache(dbStore)
	}

	stack.SessionSvc, err = iauth.NewSessionService(stack.DB, jwtSvc, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	mfaKey, err := app.DecodeKey(cfg.MFA.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode mfa encryption key: %w", err)
	}

	totpSvc, err := mfa.NewTOTPService(stack.DB, mfaKey, mfa.WithIssuer(cfg.MFA.Issuer))
	if err != nil {
		return nil, fmt.Errorf("initialise totp service: %w", err)
	}

	var mailer mail.Mailer
	if cfg.Email.SMTP.Enabled {
		if mailer, err = mail.NewSMTPMailer(cfg.Email.SMTPSettings()); err != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", err)
		}
		log.Info("smtp mailer configured", zap.String("host", cfg.Email.SMTP.Host))
	}

	resetSvc, err := iauth.NewPasswordResetService(stack.DB, mailer,
		cfg.Auth.PasswordResetServiceConfig(cfg.Server.BaseURL, cfg.Email.SMTP.From))
	if err != nil {
		return nil, fmt.Errorf("initialise password reset service: %w", err)
	}

	var sender telegram.Sender
	if cfg.Telegram.Enabled {
		if sender, err = telegram.NewBotSender(cfg.Telegram.SenderSettings()); err != nil {
			return nil, fmt.Errorf("initialise telegram sender: %w", err)
		}
		log.Info("telegram notifications enabled")
	}

	stack.Hub = notifications.NewHub()

	if cfg.Maintenance.Enabled {
		notificationSvc, svcErr := services.NewNotificationService(stack.DB, stack.Hub, sender)
		if svcErr != nil {
			return nil, fmt.Errorf("initialise notification service: %w", svcErr)
		}
		applicationSvc, svcErr := services.NewApplicationService(stack.DB, notificationSvc, services.ApplicationConfig{
			ConfirmGrace: cfg.Applications.ConfirmGrace,
		})
		if svcErr != nil {
			return nil, fmt.Errorf("initialise application service: %w", svcErr)
		}

		stack.Sweeper = maintenance.NewSweeper(stack.SessionSvc, resetSvc, applicationSvc,
			maintenance.WithSessionSchedule(cfg.Maintenance.SessionSchedule),
			maintenance.WithTokenSchedule(cfg.Maintenance.TokenSchedule),
			maintenance.WithReminderSchedule(cfg.Maintenance.ReminderSchedule),
		)
		if err := stack.Sweeper.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	var rateStore middleware.RateStore
	switch {
	case stack.Redis != nil:
		rateStore = middleware.NewRedisRateStore(stack.Redis)
	case dbStore != nil:
		rateStore = middleware.NewDatabaseRateStore(dbStore)
	}

	stack.Router, err = api.NewRouter(stack.DB, cfg, api.Dependencies{
		JWT:            jwtSvc,
		Sessions:       stack.SessionSvc,
		TOTP:           totpSvc,
		PasswordResets: resetSvc,
		Hub:            stack.Hub,
		Telegram:       sender,
		Redis:          stack.Redis,
		RateStore:      rateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Sweeper != nil {
		stopCtx := s.Sweeper.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Sweeper.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown sweep failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
