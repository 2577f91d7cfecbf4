package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/storepay/internal/config"
	"github.com/polkiloo/storepay/internal/server/http/handlers"
	"github.com/polkiloo/storepay/internal/server/http/middleware"
)

// Webhook bodies are small JSON documents.
const maxCallbackBytes = 1 << 20

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.PaymentsFacade, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	checkoutHandler := handlers.NewCheckoutHandler(facade)
	// Callbacks must settle within the shutdown window.
	callbackHandler := handlers.NewCallbackHandler(facade, cfg.ShutdownTimeout, logger)
	authHandler := handlers.NewAuthHandler(facade)
	adminHandler := handlers.NewAdminHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Check)
	api.POST("/orders", checkoutHandler.Create)
	api.GET("/orders/:id/status", checkoutHandler.Status)
	api.POST("/payments/callback", middleware.LimitBody(maxCallbackBytes), callbackHandler.Handle)

	admin := api.Group("/admin")
	admin.POST("/login", authHandler.Login)

	adminAuth := admin.Group("")
	adminAuth.Use(middleware.AdminRequired(facade))
	adminAuth.GET("/orders/:id", adminHandler.Order)
	adminAuth.POST("/orders/:id/status", adminHandler.OverrideStatus)
	adminAuth.POST("/orders/:id/payment", adminHandler.RetryPayment)
	adminAuth.GET("/recovery-jobs", adminHandler.RecoveryJobs)
	adminAuth.POST("/recovery-jobs/:id/retry", adminHandler.RetryRecoveryJob)
	adminAuth.POST("/recovery/drain", adminHandler.Drain)

	return engine
}
