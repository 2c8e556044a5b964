package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/api/middleware"
	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/internal/notify"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/internal/service"
)

// VerifyPaymentRequest represents the explicit verify payload
type VerifyPaymentRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// HandleInitializePayment handles POST /v1/payments/initialize
func HandleInitializePayment(cfg *config.Config, repos *repository.Repositories, client service.ProviderClient, notifier notify.Notifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.GetIdentityFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.InitializePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		paymentService := service.NewPaymentService(repos, client, cfg.Monime, notifier, logger)
		handle, err := paymentService.InitializePayment(c.Request.Context(), identity.UserID, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, handle)
	}
}

// HandleVerifyPayment handles POST /v1/payments/verify. The reference must
// belong to the caller's own order; a reference is not a capability.
func HandleVerifyPayment(cfg *config.Config, repos *repository.Repositories, client service.ProviderClient, notifier notify.Notifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.GetIdentityFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		order, err := repos.Order.GetByPaymentReference(c.Request.Context(), req.Reference)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if order.BuyerID != identity.UserID && identity.Role != middleware.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		paymentService := service.NewPaymentService(repos, client, cfg.Monime, notifier, logger)
		outcome, err := paymentService.VerifyPayment(c.Request.Context(), req.Reference)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, outcome)
	}
}

// HandlePollPayment handles GET /v1/payments/verify. It reads local state
// only and never calls the provider, so buyers can poll it freely.
func HandlePollPayment(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.GetIdentityFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		reference := c.Query("reference")
		if reference == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
			return
		}

		order, err := repos.Order.GetByPaymentReference(c.Request.Context(), reference)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if order.BuyerID != identity.UserID && identity.Role != middleware.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}
