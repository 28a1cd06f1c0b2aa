package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/aruzhans/oppora/internal/auth"
	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/logger"
)

const (
	defaultSessionSpec  = "@hourly"
	defaultTokenSpec    = "@daily"
	defaultReminderSpec = "@hourly"
)

// Sweeper coordinates background maintenance: purging expired sessions and
// reset tokens, and nudging users who never confirmed an application.
type Sweeper struct {
	sessions     *iauth.SessionService
	resets       *iauth.PasswordResetService
	applications *services.ApplicationService
	cron         *cron.Cron
	log          *zap.Logger

	sessionSchedule  string
	tokenSchedule    string
	reminderSchedule string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.sessionSchedule = spec
		}
	}
}

// WithTokenSchedule overrides the cron specification for reset token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.tokenSchedule = spec
		}
	}
}

// WithReminderSchedule overrides the cron specification for confirmation reminders.
func WithReminderSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.reminderSchedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewSweeper(sessions *iauth.SessionService, resets *iauth.PasswordResetService, applications *services.ApplicationService, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		sessions:         sessions,
		resets:           resets,
		applications:     applications,
		sessionSchedule:  defaultSessionSpec,
		tokenSchedule:    defaultTokenSpec,
		reminderSchedule: defaultReminderSpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the jobs with the cron scheduler and launches it when at
// least one job is enabled.
func (s *Sweeper) Start() error {
	registered := false

	if s.sessions != nil {
		if _, err := s.cron.AddFunc(s.sessionSchedule, func() {
			if _, err := s.sessions.CleanupExpired(context.Background()); err != nil {
				s.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if s.resets != nil {
		if _, err := s.cron.AddFunc(s.tokenSchedule, func() {
			if _, err := s.resets.CleanupExpired(context.Background()); err != nil {
				s.log.Warn("reset token cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if s.applications != nil {
		if _, err := s.cron.AddFunc(s.reminderSchedule, func() {
			count, err := s.applications.RemindUnconfirmed(context.Background())
			if err != nil {
				s.log.Warn("confirmation reminders failed", zap.Error(err))
				return
			}
			if count > 0 {
				s.log.Info("confirmation reminders sent", zap.Int("count", count))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if registered {
		s.cron.Start()
	}
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes all configured jobs sequentially. Used in tests and during
// graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.sessions != nil {
		if _, err := s.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.resets != nil {
		if _, err := s.resets.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.applications != nil {
		if _, err := s.applications.RemindUnconfirmed(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// sweepTimeout bounds a single shutdown-time sweep.
const sweepTimeout = 30 * time.Second

// RunOnceWithTimeout wraps RunOnce with a bounded context.
func (s *Sweeper) RunOnceWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	return s.RunOnce(ctx)
}
