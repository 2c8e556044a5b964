package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/api/handlers"
	"github.com/farmtrust/paymentsapi/internal/api/middleware"
	"github.com/farmtrust/paymentsapi/internal/auth"
	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/internal/notify"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, client service.ProviderClient, verifier auth.TokenVerifier, notifier notify.Notifier, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider callback. Unauthenticated, trust comes from the HMAC
	// signature check inside the handler.
	router.POST("/v1/webhooks/monime", handlers.HandlePaymentWebhook(cfg, repos, client, notifier, logger))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Buyer routes (require authentication)
		buyerRoutes := v1.Group("")
		buyerRoutes.Use(middleware.AuthMiddleware(verifier, logger))
		{
			buyerRoutes.POST("/orders", handlers.HandleCreateOrder(repos, logger))
			buyerRoutes.GET("/orders", handlers.HandleListOrders(repos, logger))
			buyerRoutes.GET("/orders/:id", handlers.HandleGetOrder(repos, logger))
			buyerRoutes.POST("/orders/:id/cancel", handlers.HandleCancelOrder(repos, notifier, logger))

			// Payment routes carry a rate limit on top of auth so a stuck
			// client cannot hammer the provider.
			paymentRoutes := buyerRoutes.Group("/payments")
			paymentRoutes.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Limit, cfg.RateLimit.Period))
			{
				paymentRoutes.POST("/initialize", handlers.HandleInitializePayment(cfg, repos, client, notifier, logger))
				paymentRoutes.POST("/verify", handlers.HandleVerifyPayment(cfg, repos, client, notifier, logger))
				paymentRoutes.GET("/verify", handlers.HandlePollPayment(repos, logger))
			}
		}

		// Internal ops routes, authenticated by service key instead of a
		// user token. Same verify and stats surfaces the admin group has.
		internalRoutes := v1.Group("/internal")
		internalRoutes.Use(middleware.ServiceKeyMiddleware(repos, logger))
		{
			internalRoutes.POST("/payments/verify", handlers.HandleVerifyPayment(cfg, repos, client, notifier, logger))
			internalRoutes.GET("/escrows/stats", handlers.HandleEscrowStats(repos, logger))
		}

		// Admin routes
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AuthMiddleware(verifier, logger))
		adminRoutes.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			adminRoutes.GET("/orders", handlers.HandleAdminListOrders(repos, logger))
			adminRoutes.POST("/orders/:id/deliver", handlers.HandleConfirmDelivery(repos, notifier, logger))
			adminRoutes.POST("/orders/:id/dispute", handlers.HandleMarkDisputed(repos, notifier, logger))
			adminRoutes.POST("/orders/:id/resolve", handlers.HandleResolveDispute(repos, notifier, logger))
			adminRoutes.POST("/payments/verify", handlers.HandleManualReconcile(cfg, repos, client, notifier, logger))
			adminRoutes.GET("/escrows/stats", handlers.HandleEscrowStats(repos, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
