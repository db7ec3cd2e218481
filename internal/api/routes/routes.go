package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/argus-sec/argus/backend/internal/api/handlers"
	"github.com/argus-sec/argus/backend/internal/api/middleware"
	"github.com/argus-sec/argus/backend/internal/config"
	"github.com/argus-sec/argus/backend/internal/metrics"
	"github.com/argus-sec/argus/backend/internal/models"
	"github.com/argus-sec/argus/backend/internal/services"
)

// Deps carries the shared services the route handlers need. Constructed once
// in main so the scheduler and the API share the same instances.
type Deps struct {
	Blocklist     *services.BlocklistService
	Threats       *services.ThreatService
	Analyzers     *services.AnalyzerService
	Notifications *services.NotificationService
	Auth          *services.AuthService
}

// Register wires up API routes and performs automatic migrations.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, deps Deps) error {
	if err := db.AutoMigrate(
		&models.WafEvent{},
		&models.BlockedIP{},
		&models.AutoBlockPolicy{},
		&models.Notification{},
		&models.NotificationProvider{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	router.GET("/api/v1/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(deps.Auth)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/")
	protected.Use(middleware.Auth(deps.Auth))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)

		eventHandler := handlers.NewEventHandler(deps.Threats)
		protected.POST("/events", eventHandler.Ingest)
		protected.GET("/events", eventHandler.List)

		blocklistHandler := handlers.NewBlocklistHandler(deps.Blocklist)
		protected.GET("/blocklist", blocklistHandler.List)
		protected.POST("/blocklist", blocklistHandler.Block)
		protected.DELETE("/blocklist/:ip", blocklistHandler.Unblock)
		protected.POST("/blocklist/sweep", blocklistHandler.Sweep)

		policyHandler := handlers.NewPolicyHandler(deps.Blocklist)
		protected.GET("/policy", policyHandler.Get)
		protected.PUT("/policy", policyHandler.Upsert)

		analyzerHandler := handlers.NewAnalyzerHandler(deps.Analyzers)
		protected.POST("/analyzers/run", analyzerHandler.Run)

		notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return nil
}
