package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"
	"github.com/guimac3do/chica-y-nino-sub001/internal/store"
	"github.com/guimac3do/chica-y-nino-sub001/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes the order domain events; satisfied by
// broker.EventPublisher.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishLineStatusChanged(ctx context.Context, event *models.LineStatusChangedEvent) error
}

// OrderService handles cart-to-order consolidation and order reads
type OrderService struct {
	store          *store.Store
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, eventPublisher EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// OrderView is an order with its lines, snapshot total, and the derived
// display status.
type OrderView struct {
	models.Order
	Lines  []models.OrderLine `json:"lines"`
	Total  int64              `json:"total"`
	Status string             `json:"status"`
}

func (s *OrderService) buildView(order *models.Order, lines []models.OrderLine) *OrderView {
	var total int64
	for _, l := range lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return &OrderView{
		Order:  *order,
		Lines:  lines,
		Total:  total,
		Status: DeriveOrderStatus(lines, order.PaymentMarker),
	}
}

// CreateOrder consolidates the user's cart into a single order. The cart
// read, line snapshots and cart clear happen in one transaction; on any
// failure nothing is created and nothing is drained.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, notes string) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ConsolidationLatency.Observe(time.Since(start).Seconds())
	}()

	owner := models.UserOwner(userID)
	order, lines, err := s.store.ConsolidateCart(ctx, owner, userID, notes, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyCart):
			util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		default:
			util.OrdersFailedTotal.WithLabelValues("transaction").Inc()
		}
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int("lines", len(lines)))

	view := s.buildView(order, lines)

	eventLines := make([]models.OrderLineData, 0, len(lines))
	for _, l := range lines {
		eventLines = append(eventLines, models.OrderLineData{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Color:     l.Color,
			UnitPrice: l.UnitPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		UserID:      userID,
		TotalAmount: view.Total,
		Lines:       eventLines,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return view, nil
}

// GetOrder retrieves an order with its lines, scoped to its owner
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}

	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return s.buildView(order, lines), nil
}

// ListOrders retrieves the user's orders with derived statuses
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.store.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*OrderView, 0, len(orders))
	for i := range orders {
		lines, err := s.store.GetOrderLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		views = append(views, s.buildView(&orders[i], lines))
	}
	return views, nil
}

// CancelOrder sets every line of the order to cancelled. Lines stay in
// place; cancellation is a bulk status transition, not a deletion.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %d belongs to another user: %w", orderID, models.ErrForbidden)
	}

	if err := s.store.CancelOrderLines(ctx, orderID); err != nil {
		return nil, fmt.Errorf("failed to cancel order lines: %w", err)
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID))

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		UserID:  userID,
		Reason:  "customer_request",
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.buildView(order, lines), nil
}

// CancelOrderItem cancels a single line without touching its siblings
func (s *OrderService) CancelOrderItem(ctx context.Context, userID, orderID, lineID int64) (*models.OrderLine, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrderItem")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %d belongs to another user: %w", orderID, models.ErrForbidden)
	}

	line, err := s.store.GetOrderLine(ctx, orderID, lineID)
	if err != nil {
		return nil, err
	}
	if line.PaymentStatus == models.PaymentStatusCancelled {
		return line, nil
	}

	if err := s.store.UpdateLinePaymentStatus(ctx, lineID, models.PaymentStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel order line: %w", err)
	}
	line.PaymentStatus = models.PaymentStatusCancelled

	util.LineStatusTransitionsTotal.WithLabelValues("payment", models.PaymentStatusCancelled).Inc()
	s.logger.Info("Order line cancelled",
		zap.Int64("order_id", orderID),
		zap.Int64("line_id", lineID))

	s.publishLineStatusChanged(ctx, orderID, lineID, models.PaymentStatusCancelled, "")
	return line, nil
}

func (s *OrderService) publishLineStatusChanged(ctx context.Context, orderID, lineID int64, paymentStatus, stockStatus string) {
	event := &models.LineStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeLineStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:       orderID,
		LineID:        lineID,
		PaymentStatus: paymentStatus,
		StockStatus:   stockStatus,
	}
	if err := s.eventPublisher.PublishLineStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish LineStatusChanged event", zap.Error(err))
	}
}
