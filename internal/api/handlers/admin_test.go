package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/repository"
)

// listingOrderRepo serves a fixed set of orders for the list endpoints
type listingOrderRepo struct {
	repository.OrderRepository
	orders []*domain.Order
}

func (r listingOrderRepo) List(_ context.Context, limit, _ int) ([]*domain.Order, error) {
	if len(r.orders) > limit {
		return r.orders[:limit], nil
	}
	return r.orders, nil
}

func (r listingOrderRepo) ListByStatus(_ context.Context, status domain.OrderStatus, limit, _ int) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, order := range r.orders {
		if order.Status == status && len(out) < limit {
			out = append(out, order)
		}
	}
	return out, nil
}

func adminListRouter(orders []*domain.Order) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	repos := &repository.Repositories{Order: listingOrderRepo{orders: orders}}
	router := gin.New()
	router.GET("/v1/admin/orders", HandleAdminListOrders(repos, logger))
	return router
}

func adminOrder(status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		OrderNumber: "FT-20260831-" + string(status),
		BuyerID:     uuid.New(),
		Status:      status,
		Total:       50000,
		Currency:    domain.Currency,
	}
}

func TestAdminListOrders(t *testing.T) {
	router := adminListRouter([]*domain.Order{
		adminOrder(domain.OrderStatusConfirmed),
		adminOrder(domain.OrderStatusPendingPayment),
		adminOrder(domain.OrderStatusConfirmed),
	})

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{name: "no filter lists everything", query: "", wantCode: http.StatusOK, wantCount: 3},
		{name: "status filter", query: "?status=confirmed", wantCode: http.StatusOK, wantCount: 2},
		{name: "empty filter result", query: "?status=disputed", wantCode: http.StatusOK, wantCount: 0},
		{name: "unknown status", query: "?status=paidd", wantCode: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/orders"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			var payload struct {
				Count int `json:"count"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, tt.wantCount, payload.Count)
		})
	}
}
