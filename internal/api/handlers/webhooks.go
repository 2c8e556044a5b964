package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/notify"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/internal/service"
)

const signatureHeader = "Monime-Signature"

// webhookEvent is the provider's callback payload
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// HandlePaymentWebhook handles POST /v1/webhooks/monime. The signature is an
// HMAC-SHA256 of the raw body keyed with the shared webhook secret; requests
// that do not carry a valid signature are rejected before any payload
// handling. The endpoint is unauthenticated otherwise, so the signature is
// the only trust boundary.
func HandlePaymentWebhook(cfg *config.Config, repos *repository.Repositories, client service.ProviderClient, notifier notify.Notifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Monime.WebhookSecret == "" {
			logger.Error("webhook received but no webhook secret is configured")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhooks not configured"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		if !validSignature(cfg.Monime.WebhookSecret, body, c.GetHeader(signatureHeader)) {
			logger.Warn("webhook signature mismatch", zap.String("remote_addr", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		var event webhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
			return
		}
		if event.Data.Reference == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing reference"})
			return
		}

		remote := domain.PaymentStatus(event.Data.Status)
		if !remote.IsValid() {
			// Unknown statuses are treated as still processing, a later
			// verify settles them.
			remote = domain.PaymentStatusProcessing
		}

		paymentService := service.NewPaymentService(repos, client, cfg.Monime, notifier, logger)
		outcome, err := paymentService.ReconcileRemoteStatus(c.Request.Context(), event.Data.Reference, remote)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		logger.Info("webhook reconciled",
			zap.String("reference", event.Data.Reference),
			zap.String("event", event.Event),
			zap.String("payment_status", string(outcome.PaymentStatus)),
			zap.Bool("changed", outcome.Changed),
		)
		c.JSON(http.StatusOK, outcome)
	}
}

func validSignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
