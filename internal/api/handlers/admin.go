package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/notify"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/internal/service"
)

// ResolveDisputeRequest carries the admin's dispute verdict
type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// ManualReconcileRequest forces a payment status with operator notes
type ManualReconcileRequest struct {
	Reference string `json:"reference" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Notes     string `json:"notes" binding:"required"`
}

// HandleAdminListOrders handles GET /v1/admin/orders. The status query is
// a filter; leaving it off lists orders across every status.
func HandleAdminListOrders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := parsePaging(c)
		orderService := service.NewOrderService(repos, logger)

		var (
			orders []*domain.Order
			err    error
		)
		if raw := c.Query("status"); raw != "" {
			status := domain.OrderStatus(raw)
			if !status.IsValid() {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown order status"})
				return
			}
			orders, err = orderService.ListOrdersByStatus(c.Request.Context(), status, limit, offset)
		} else {
			orders, err = orderService.ListOrders(c.Request.Context(), limit, offset)
		}
		if err != nil {
			respondError(c, logger, err)
			return
		}

		responses := make([]OrderResponse, 0, len(orders))
		for _, order := range orders {
			responses = append(responses, toOrderResponse(order))
		}
		c.JSON(http.StatusOK, gin.H{
			"orders": responses,
			"count":  len(responses),
		})
	}
}

// HandleConfirmDelivery handles POST /v1/admin/orders/:id/deliver. Marking
// an order delivered releases its escrow to the vendor and completes it.
func HandleConfirmDelivery(repos *repository.Repositories, notifier notify.Notifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		settlementService := service.NewSettlementService(repos, notifier, logger)
		order, err := settlementService.ConfirmDelivery(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

// HandleMarkDisputed handles POST /v1/admin/orders/:id/dispute
func HandleMarkDisputed(repos *repository.Repositories, notifier notify.Notifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		settlementService := service.NewSettlementService(repos, notifier, logger)
		order, err := settlementService.MarkDisputed(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

// HandleResolveDispute handles POST /v1/admin/orders/:id/resolve
func HandleResolveDispute(repos *repository.Repositories, notifier notify.Notifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		var req ResolveDisputeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		outcome := domain.DisputeOutcome(req.Outcome)
		if !outcome.IsValid() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "outcome must be release or refund"})
			return
		}

		settlementService := service.NewSettlementService(repos, notifier, logger)
		order, err := settlementService.ResolveDispute(c.Request.Context(), orderID, outcome)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

// HandleManualReconcile handles POST /v1/admin/payments/verify. Notes are
// mandatory so every manual override leaves an audit trail on the payment.
func HandleManualReconcile(cfg *config.Config, repos *repository.Repositories, client service.ProviderClient, notifier notify.Notifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ManualReconcileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		paymentService := service.NewPaymentService(repos, client, cfg.Monime, notifier, logger)
		outcome, err := paymentService.ManualReconcile(c.Request.Context(), req.Reference, domain.PaymentStatus(req.Status), req.Notes)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, outcome)
	}
}

// HandleEscrowStats handles GET /v1/admin/escrows/stats
func HandleEscrowStats(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		escrowService := service.NewEscrowService(repos, logger)
		stats, err := escrowService.Stats(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"escrows":      stats,
			"release_rate": stats.ReleaseRate(),
			"refund_rate":  stats.RefundRate(),
		})
	}
}
