package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/app"
	iauth "github.com/aruzhans/oppora/internal/auth"
	"github.com/aruzhans/oppora/internal/auth/mfa"
	"github.com/aruzhans/oppora/internal/cache"
	"github.com/aruzhans/oppora/internal/handlers"
	"github.com/aruzhans/oppora/internal/middleware"
	"github.com/aruzhans/oppora/internal/notifications"
	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/telegram"
)

// Dependencies carries the shared services the router wires into handlers.
// Redis and Telegram are optional; everything else must be set.
type Dependencies struct {
	JWT            *iauth.JWTService
	Sessions       *iauth.SessionService
	TOTP           *mfa.TOTPService
	PasswordResets *iauth.PasswordResetService
	Hub            *notifications.Hub
	Telegram       telegram.Sender
	Redis          *cache.RedisClient
	RateStore      middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if deps.TOTP == nil {
		return nil, fmt.Errorf("totp service must be provided")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("notification hub must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF())
	}
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimitWithStore(deps.RateStore, 100, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db, deps.Redis))

	authHandler := handlers.NewAuthHandler(db, deps.JWT, deps.Sessions, deps.TOTP, deps.PasswordResets)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/2fa", authHandler.TwoFactor)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	requireAuth := middleware.Auth(deps.JWT)
	optionalAuth := middleware.OptionalAuth(deps.JWT)
	requireAdmin := middleware.RequireAdmin(db)

	userHandler, err := handlers.NewUserHandler(db)
	if err != nil {
		return nil, err
	}
	opportunityHandler, err := handlers.NewOpportunityHandler(db)
	if err != nil {
		return nil, err
	}
	categoryHandler, err := handlers.NewCategoryHandler(db)
	if err != nil {
		return nil, err
	}
	orgHandler, err := handlers.NewOrganizationHandler(db, deps.Hub, deps.Telegram)
	if err != nil {
		return nil, err
	}
	engagementHandler, err := handlers.NewEngagementHandler(db)
	if err != nil {
		return nil, err
	}

	// Public catalog and profile reads. OptionalAuth lets privacy scoping and
	// engagement state reflect the viewer when a token is present.
	public := r.Group("/api")
	public.Use(optionalAuth)
	{
		public.GET("/users/:id", userHandler.GetProfile)
		public.GET("/users/:id/participations", userHandler.ListParticipations)
		public.GET("/opportunities", opportunityHandler.List)
		public.GET("/opportunities/:id", opportunityHandler.Get)
		public.GET("/categories", categoryHandler.List)
		public.GET("/categories/:id", categoryHandler.Get)
		public.GET("/organizations", orgHandler.List)
		public.GET("/organizations/:id", orgHandler.Get)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(requireAuth)

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)
	api.PUT("/auth/password", authHandler.ChangePassword)

	// Profile
	profileHandler, err := handlers.NewProfileHandler(db, deps.TOTP)
	if err != nil {
		return nil, err
	}
	profile := api.Group("/profile")
	{
		profile.GET("", profileHandler.Get)
		profile.PATCH("", profileHandler.Update)
		profile.PUT("/privacy", profileHandler.UpdatePrivacy)
		profile.PATCH("/telegram", profileHandler.LinkTelegram)
		profile.POST("/2fa/setup", profileHandler.TwoFactorSetup)
		profile.POST("/2fa/activate", profileHandler.TwoFactorActivate)
		profile.POST("/2fa/disable", profileHandler.TwoFactorDisable)
	}

	// Friends
	friendHandler, err := handlers.NewFriendHandler(db, deps.Hub, deps.Telegram)
	if err != nil {
		return nil, err
	}
	friends := api.Group("/friends")
	{
		friends.GET("", friendHandler.List)
		friends.DELETE("/:id", friendHandler.Unfriend)
		friends.POST("/requests", friendHandler.SendRequest)
		friends.GET("/requests/incoming", friendHandler.ListIncoming)
		friends.GET("/requests/outgoing", friendHandler.ListOutgoing)
		friends.POST("/requests/:id", friendHandler.Respond)
	}

	// Organization follows
	api.POST("/organizations/:id/follow", orgHandler.SetFollow)
	api.GET("/organizations/:id/follow/status", orgHandler.FollowStatus)
	api.GET("/organizations/followed", orgHandler.ListFollowed)

	// Engagement
	api.POST("/opportunities/:id/bookmark", engagementHandler.SetBookmark)
	api.GET("/opportunities/:id/bookmark/status", engagementHandler.BookmarkStatus)
	api.GET("/profile/bookmarks", engagementHandler.ListBookmarks)
	api.POST("/opportunities/:id/view", engagementHandler.MarkViewed)
	api.GET("/opportunities/:id/check-view", engagementHandler.ViewStatus)
	api.GET("/profile/viewed-opportunities", engagementHandler.ViewHistory)

	// Applications
	applicationHandler, err := handlers.NewApplicationHandler(db, deps.Hub, deps.Telegram, services.ApplicationConfig{
		ConfirmGrace: cfg.Applications.ConfirmGrace,
	})
	if err != nil {
		return nil, err
	}
	api.POST("/opportunities/:id/apply", applicationHandler.Apply)
	api.GET("/applications", applicationHandler.List)
	api.GET("/applications/unconfirmed", applicationHandler.ListUnconfirmed)
	api.POST("/applications/:id/confirm", applicationHandler.Confirm)

	// Participations
	participationHandler, err := handlers.NewParticipationHandler(db)
	if err != nil {
		return nil, err
	}
	api.POST("/opportunities/:id/participations", participationHandler.Create)
	participations := api.Group("/participations")
	{
		participations.GET("", participationHandler.List)
		participations.PUT("/:id/privacy", participationHandler.UpdatePrivacy)
		participations.DELETE("/:id", participationHandler.Delete)
	}

	// Notifications
	notificationHandler, err := handlers.NewNotificationHandler(db, deps.Hub, deps.Telegram, deps.JWT)
	if err != nil {
		return nil, err
	}
	notif := api.Group("/notifications")
	{
		notif.GET("", notificationHandler.List)
		notif.GET("/unread-count", notificationHandler.UnreadCount)
		notif.POST("/:id/read", notificationHandler.MarkRead)
		notif.POST("/read-all", notificationHandler.MarkAllRead)
		notif.DELETE("/:id", notificationHandler.Delete)
	}
	// Websocket stream authenticates via query token, outside the auth middleware.
	r.GET("/api/notifications/stream", notificationHandler.Stream)

	// Catalog management (admin only)
	admin := api.Group("")
	admin.Use(requireAdmin)
	{
		admin.POST("/opportunities", opportunityHandler.Create)
		admin.PUT("/opportunities/:id", opportunityHandler.Update)
		admin.DELETE("/opportunities/:id", opportunityHandler.Delete)
		admin.POST("/categories", categoryHandler.Create)
		admin.PUT("/categories/:id", categoryHandler.Update)
		admin.DELETE("/categories/:id", categoryHandler.Delete)
		admin.POST("/organizations", orgHandler.Create)
		admin.PUT("/organizations/:id", orgHandler.Update)
		admin.DELETE("/organizations/:id", orgHandler.Delete)
	}

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
