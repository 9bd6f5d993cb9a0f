package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-builder/internal/broker"
	"checkout-builder/internal/checkout"
	"checkout-builder/internal/models"
	"checkout-builder/internal/store"
	"checkout-builder/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrOrderInProgress is returned when an idempotency key is claimed but its order is not stored yet
	ErrOrderInProgress = errors.New("an order with this idempotency key is still being processed")
	// ErrInvalidStatus is returned for unknown order statuses
	ErrInvalidStatus = errors.New("invalid order status")
)

// PageLoader gives the order service read access to pages
type PageLoader interface {
	PublicPage(ctx context.Context, slug string) (*models.CheckoutPage, error)
	GetPage(ctx context.Context, userID, pageID string) (*models.CheckoutPage, error)
}

// OrderService handles order business logic
type OrderService struct {
	orders         OrderRepository
	pages          PageLoader
	idempotency    IdempotencyStore
	eventPublisher ChangePublisher
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewOrderService creates a new order service. idempotency and eventPublisher may be nil.
func NewOrderService(
	orders OrderRepository,
	pages PageLoader,
	idempotency IdempotencyStore,
	eventPublisher ChangePublisher,
	idempotencyTTL time.Duration,
) *OrderService {
	return &OrderService{
		orders:         orders,
		pages:          pages,
		idempotency:    idempotency,
		eventPublisher: eventPublisher,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// SubmitOrderRequest is what the storefront posts
type SubmitOrderRequest struct {
	ProductIDs     []string              `json:"product_ids"`
	Quantities     map[string]int        `json:"quantities,omitempty"`
	Customer       checkout.CustomerForm `json:"customer"`
	PaymentMethod  string                `json:"payment_method" binding:"required,oneof=pix credit_card boleto"`
	IdempotencyKey string                `json:"-"`
}

// SubmitOrderResponse represents the response after submitting an order
type SubmitOrderResponse struct {
	OrderID     string          `json:"order_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Duplicate   bool            `json:"duplicate,omitempty"`
}

// SubmitOrder validates the customer's selection and form against the page and stores the order
func (s *OrderService) SubmitOrder(ctx context.Context, slug string, req *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SubmitOrder")
	defer span.End()

	page, err := s.pages.PublicPage(ctx, slug)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("page_unavailable").Inc()
		return nil, err
	}

	sel := checkout.NewSelection(req.ProductIDs...)
	for id, q := range req.Quantities {
		sel.SetQuantity(id, q)
	}

	order, err := checkout.BuildOrder(page, sel, &req.Customer)
	if err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			util.OrdersRejectedTotal.WithLabelValues(string(verr.Code)).Inc()
		}
		return nil, err
	}
	order.ID = uuid.New().String()
	order.PaymentMethod = req.PaymentMethod

	if req.IdempotencyKey != "" && s.idempotency != nil {
		existingID, fresh, err := s.idempotency.ClaimIdempotencyKey(ctx, page.ID, req.IdempotencyKey, order.ID, s.idempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency check failed, continuing without it", zap.Error(err))
		} else if !fresh {
			return s.duplicate(ctx, req.IdempotencyKey, existingID)
		}
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("db_error").Inc()
		if req.IdempotencyKey != "" && s.idempotency != nil {
			if rerr := s.idempotency.ReleaseIdempotencyKey(ctx, page.ID, req.IdempotencyKey); rerr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.Error(rerr))
			}
		}
		return nil, util.RecordError(span, fmt.Errorf("failed to create order: %w", err))
	}

	util.OrdersSubmittedTotal.Inc()
	s.logger.Info("Order submitted",
		zap.String("order_id", order.ID),
		zap.String("page_id", page.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	s.publish(ctx, models.ActionInsert, order, page.UserID)

	return &SubmitOrderResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	}, nil
}

func (s *OrderService) duplicate(ctx context.Context, key, orderID string) (*SubmitOrderResponse, error) {
	existing, err := s.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.String("order_id", existing.ID))

	return &SubmitOrderResponse{
		OrderID:     existing.ID,
		Status:      existing.Status,
		TotalAmount: existing.TotalAmount,
		Duplicate:   true,
	}, nil
}

// ListOrders returns the orders of a page owned by userID
func (s *OrderService) ListOrders(ctx context.Context, userID, pageID string) ([]*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	if _, err := s.pages.GetPage(ctx, userID, pageID); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListOrdersByPage(ctx, pageID, userID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	return orders, nil
}

// UpdateOrderStatus lets a page owner move an order to another status
func (s *OrderService) UpdateOrderStatus(ctx context.Context, userID, orderID, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := s.orders.UpdateOrderStatus(ctx, orderID, userID, status)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.OrderStatusChangesTotal.WithLabelValues(status).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("status", status))

	s.publish(ctx, models.ActionUpdate, order, userID)
	return order, nil
}

// GetDashboard returns the aggregated stats of userID
func (s *OrderService) GetDashboard(ctx context.Context, userID string) (*models.DashboardStats, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetDashboard")
	defer span.End()

	stats, err := s.orders.GetDashboardStats(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	return stats, nil
}

func (s *OrderService) publish(ctx context.Context, action string, order *models.Order, ownerID string) {
	if s.eventPublisher == nil {
		return
	}

	event, err := broker.NewChangeEvent(models.TableOrders, action, order.ID, order.CheckoutPageID, ownerID, order)
	if err != nil {
		s.logger.Error("Failed to build change event", zap.Error(err))
		return
	}
	if err := s.eventPublisher.PublishChange(ctx, event); err != nil {
		s.logger.Error("Failed to publish order change",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
