package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

// districtCapitals maps Sierra Leone districts to their principal city,
// used to auto-fill a blank delivery city.
var districtCapitals = map[string]string{
	"Western Area Urban": "Freetown",
	"Western Area Rural": "Waterloo",
	"Bo":                 "Bo",
	"Bombali":            "Makeni",
	"Bonthe":             "Bonthe",
	"Falaba":             "Bendugu",
	"Kailahun":           "Kailahun",
	"Kambia":             "Kambia",
	"Karene":             "Kamakwie",
	"Kenema":             "Kenema",
	"Koinadugu":          "Kabala",
	"Kono":               "Koidu Town",
	"Moyamba":            "Moyamba",
	"Port Loko":          "Port Loko",
	"Pujehun":            "Pujehun",
	"Tonkolili":          "Magburaka",
}

type orderService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, logger *zap.Logger) *orderService {
	return &orderService{
		repos:  repos,
		logger: logger,
	}
}

// CreateOrder validates the request, reserves stock for every item and
// persists the order in status pending. Reservation is all-or-nothing:
// if any item fails, reservations already taken in this request are
// released before the error is returned.
func (s *orderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req CreateOrderRequest) (*domain.Order, error) {
	delivery, err := normalizeDelivery(req.Delivery)
	if err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, &errors.ErrValidation{Field: "items", Message: "order must contain at least one item"}
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	var subtotal int64

	type reservation struct {
		productID uuid.UUID
		quantity  int
	}
	var reserved []reservation

	// Compensating release of everything reserved so far in this request
	compensate := func() {
		for i := len(reserved) - 1; i >= 0; i-- {
			r := reserved[i]
			if err := s.repos.Product.Release(ctx, r.productID, r.quantity); err != nil {
				s.logger.Error("Failed to release stock during compensation",
					zap.String("product_id", r.productID.String()),
					zap.Int("quantity", r.quantity),
					zap.Error(err),
				)
			}
		}
	}

	for _, input := range req.Items {
		productID, err := uuid.Parse(input.ProductID)
		if err != nil {
			compensate()
			return nil, &errors.ErrValidation{Field: "items.product_id", Message: "invalid product id"}
		}
		if input.Quantity <= 0 {
			compensate()
			return nil, &errors.ErrValidation{Field: "items.quantity", Message: "quantity must be positive"}
		}

		product, err := s.repos.Product.GetByID(ctx, productID)
		if err != nil {
			compensate()
			return nil, err
		}
		if product.UnitPrice <= 0 {
			compensate()
			return nil, &errors.ErrValidation{Field: "items.price", Message: "product has no valid price"}
		}

		if err := s.repos.Product.Reserve(ctx, productID, input.Quantity); err != nil {
			compensate()
			return nil, err
		}
		reserved = append(reserved, reservation{productID: productID, quantity: input.Quantity})

		itemSubtotal := product.UnitPrice * int64(input.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: productID,
			Name:      product.Name,
			UnitPrice: product.UnitPrice,
			Quantity:  input.Quantity,
			Subtotal:  itemSubtotal,
		})
		subtotal += itemSubtotal
	}

	order := &domain.Order{
		ID:          uuid.New(),
		OrderNumber: newOrderNumber(),
		BuyerID:     buyerID,
		Items:       items,
		Delivery:    *delivery,
		Subtotal:    subtotal,
		Total:       subtotal,
		Currency:    domain.Currency,
		Status:      domain.OrderStatusPending,
	}

	if req.Total != 0 && req.Total != order.Total {
		// Client totals are display-only; log divergence, never trust it
		s.logger.Warn("Client total diverges from computed total",
			zap.Int64("client_total", req.Total),
			zap.Int64("computed_total", order.Total),
		)
	}

	if err := s.repos.Order.Create(ctx, order); err != nil {
		compensate()
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", order.Total),
	)

	return order, nil
}

// GetOrder fetches an order by id
func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.repos.Order.GetByID(ctx, orderID)
}

// ListBuyerOrders lists a buyer's orders, newest first
func (s *orderService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	return s.repos.Order.ListByBuyer(ctx, buyerID, limit, offset)
}

// ListOrdersByStatus lists orders in a given status, newest first
func (s *orderService) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	return s.repos.Order.ListByStatus(ctx, status, limit, offset)
}

// ListOrders lists orders across all statuses, newest first
func (s *orderService) ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	return s.repos.Order.List(ctx, limit, offset)
}

func normalizeDelivery(input DeliveryInput) (*domain.DeliveryAddress, error) {
	delivery := &domain.DeliveryAddress{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
		District:  strings.TrimSpace(input.District),
		City:      strings.TrimSpace(input.City),
		Notes:     strings.TrimSpace(input.Notes),
	}

	if delivery.FirstName == "" {
		return nil, &errors.ErrValidation{Field: "delivery.first_name", Message: "first name is required"}
	}
	if delivery.LastName == "" {
		return nil, &errors.ErrValidation{Field: "delivery.last_name", Message: "last name is required"}
	}
	if delivery.Phone == "" {
		return nil, &errors.ErrValidation{Field: "delivery.phone", Message: "phone is required"}
	}
	if delivery.Address == "" {
		return nil, &errors.ErrValidation{Field: "delivery.address", Message: "address is required"}
	}
	if delivery.District == "" {
		return nil, &errors.ErrValidation{Field: "delivery.district", Message: "district is required"}
	}

	if delivery.City == "" {
		if capital, ok := districtCapitals[delivery.District]; ok {
			delivery.City = capital
		}
	}

	return delivery, nil
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("FT-%s-%s", time.Now().Format("20060102"), suffix)
}
