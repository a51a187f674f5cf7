package router

import (
	"log/slog"

	"github.com/anonto42/quill/internal/handlers"
	"github.com/anonto42/quill/internal/middleware"
	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/internal/services"
	"github.com/anonto42/quill/pkg/kv"
	"github.com/labstack/echo/v4"
)

// SetupRoutes configures all application routes and injects dependencies.
// auth guards every route under /api/v1.
func SetupRoutes(e *echo.Echo, backend kv.Backend, auth echo.MiddlewareFunc, logger *slog.Logger) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	stores := repositories.NewStores(backend, repositories.WithLogger(logger))

	// --- Initialize Services ---
	publisher := services.NewPublisher(stores.Content, stores.Notifications, logger)
	checker := services.NewUpdateChecker(stores.Content, stores.Interactions, stores.Notifications, repositories.SystemClock, logger)
	backup := services.NewBackup(stores, repositories.SystemClock, logger)
	feed := services.NewFeed(stores.Content, stores.Interactions, logger)

	api := e.Group("/api/v1")
	api.Use(auth)

	handlers.NewPostHandler(stores.Content).RegisterPostRoutes(api)
	handlers.NewDraftHandler(stores.Content, stores.Notifications, publisher, logger).RegisterDraftRoutes(api)
	handlers.NewInteractionHandler(stores.Interactions, stores.Content, stores.Notifications, logger).RegisterInteractionRoutes(api)
	handlers.NewFeedHandler(feed).RegisterFeedRoutes(api)
	handlers.NewNotificationHandler(stores.Notifications, checker).RegisterNotificationRoutes(api)
	handlers.NewBackupHandler(backup).RegisterBackupRoutes(api)

	logger.Info("routes configured", "routes", len(e.Routes()))
}

// SetupAuthRoutes exposes the unauthenticated token exchange that turns a
// Firebase ID token into a local JWT signed with jwtSecret.
func SetupAuthRoutes(e *echo.Echo, verifier middleware.TokenVerifier, jwtSecret string) {
	handlers.NewAuthHandler(verifier, jwtSecret).RegisterAuthRoutes(e.Group("/api/v1/auth"))
}
