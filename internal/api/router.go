// Package api wires the HTTP surface: routes, middleware, and handlers.
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/syncwell/mailsync-backend/internal/api/handlers"
	"github.com/syncwell/mailsync-backend/internal/api/middleware"
	"github.com/syncwell/mailsync-backend/internal/logger"
	"github.com/syncwell/mailsync-backend/internal/metrics"
	"github.com/syncwell/mailsync-backend/internal/services"
	"github.com/syncwell/mailsync-backend/internal/storage"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	Emails   *services.EmailService
	Sync     *services.SyncService
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Security *logger.SecurityLogger

	// Security configuration
	APIKey         string   // API key for authentication (empty = disabled)
	AllowedOrigins []string // Allowed CORS origins
	AppEnv         string   // "production" drops wildcard origins
	RateLimit      int      // Requests per second per IP (0 = default)
	RateBurst      int      // Burst size for the rate limiter

	// AttachmentGateway is the base URL attachment references resolve
	// against; empty passes references through unchanged
	AttachmentGateway string
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware order: recover first, then headers, CORS, rate limiting,
	// and request logging
	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.AppEnv))
	e.Use(middleware.RateLimiter(float64(cfg.RateLimit), cfg.RateBurst, cfg.Security))
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	emailHandler := handlers.NewEmailHandler(cfg.Emails, storage.NewURLResolver(cfg.AttachmentGateway))
	syncHandler := handlers.NewSyncHandler(cfg.Sync)
	healthHandler := handlers.NewHealthHandler(cfg.Emails)

	// Probes and metrics bypass authentication
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))
	}

	api := e.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.Security))

	// Email routes
	emails := api.Group("/emails")
	emails.POST("", emailHandler.Create)
	emails.GET("", emailHandler.List)
	emails.GET("/:messageId", emailHandler.Get)
	emails.GET("/:messageId/attachments/:attachmentId", emailHandler.GetAttachment)
	emails.PUT("/:messageId/labels", emailHandler.UpdateLabels)
	emails.PUT("/:messageId/folder", emailHandler.MoveFolder)
	emails.DELETE("/:messageId", emailHandler.Delete)

	// Thread routes
	api.GET("/threads/:threadId", emailHandler.GetThread)

	// Sync routes
	api.POST("/sync", syncHandler.Trigger)
	api.GET("/sync/providers", syncHandler.Providers)

	return e
}
