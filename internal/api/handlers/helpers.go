package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

func atoiQuery(c *gin.Context, key string) (int, error) {
	return strconv.Atoi(c.Query(key))
}

// respondError maps the error taxonomy onto HTTP statuses. Anything
// untyped is logged and hidden behind a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch e := err.(type) {
	case *errors.ErrValidation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": e.Error()})
	case *errors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Error()})
	case *errors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": e.Error()})
	case *errors.ErrInsufficientStock:
		c.JSON(http.StatusConflict, gin.H{
			"error":      e.Error(),
			"product_id": e.ProductID,
			"available":  e.Available,
		})
	case *errors.ErrOrderAlreadyPaid,
		*errors.ErrPaymentAlreadyPending,
		*errors.ErrInvalidStateTransition:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case *errors.ErrProviderNotConfigured:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment provider is not configured"})
	case *errors.ErrProviderUnavailable:
		logger.Warn("Provider unavailable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable, please retry"})
	default:
		logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// OrderResponse represents the order response
type OrderResponse struct {
	ID            string                 `json:"id"`
	OrderNumber   string                 `json:"order_number"`
	BuyerID       string                 `json:"buyer_id"`
	Items         []OrderItemResponse    `json:"items"`
	Delivery      domain.DeliveryAddress `json:"delivery"`
	Subtotal      int64                  `json:"subtotal"`
	Total         int64                  `json:"total"`
	Currency      string                 `json:"currency"`
	Status        domain.OrderStatus     `json:"status"`
	PaymentStatus domain.PaymentStatus   `json:"payment_status,omitempty"`
	Payment       *PaymentResponse       `json:"payment,omitempty"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at"`
}

type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type PaymentResponse struct {
	Provider      string               `json:"provider"`
	Method        domain.PaymentMethod `json:"method"`
	Reference     string               `json:"reference"`
	Status        domain.PaymentStatus `json:"status"`
	Amount        int64                `json:"amount"`
	Currency      string               `json:"currency"`
	CustomerPhone string               `json:"customer_phone,omitempty"`
	InitiatedAt   string               `json:"initiated_at"`
	CompletedAt   *string              `json:"completed_at,omitempty"`
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		}
	}

	response := OrderResponse{
		ID:            order.ID.String(),
		OrderNumber:   order.OrderNumber,
		BuyerID:       order.BuyerID.String(),
		Items:         items,
		Delivery:      order.Delivery,
		Subtotal:      order.Subtotal,
		Total:         order.Total,
		Currency:      order.Currency,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		CreatedAt:     order.CreatedAt.Format(timeFormat),
		UpdatedAt:     order.UpdatedAt.Format(timeFormat),
	}

	if order.Payment != nil {
		payment := &PaymentResponse{
			Provider:      order.Payment.Provider,
			Method:        order.Payment.Method,
			Reference:     order.Payment.Reference,
			Status:        order.Payment.Status,
			Amount:        order.Payment.Amount,
			Currency:      order.Payment.Currency,
			CustomerPhone: order.Payment.CustomerPhone,
			InitiatedAt:   order.Payment.InitiatedAt.Format(timeFormat),
		}
		if order.Payment.CompletedAt != nil {
			completed := order.Payment.CompletedAt.Format(timeFormat)
			payment.CompletedAt = &completed
		}
		response.Payment = payment
	}

	return response
}
