package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/broker"
	"github.com/guimac3do/chica-y-nino-sub001/internal/models"
	"github.com/guimac3do/chica-y-nino-sub001/internal/store"
	"github.com/guimac3do/chica-y-nino-sub001/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationPublisher announces sent notifications; satisfied by
// broker.EventPublisher.
type NotificationPublisher interface {
	PublishNotificationSent(ctx context.Context, event *models.NotificationSentEvent) error
}

// NotificationWorker consumes payment confirmations from the external
// payment path: it flips the order's coarse payment marker, bumps the
// notifications-sent counter (the only place it lives) and announces the
// notification.
type NotificationWorker struct {
	consumer       *broker.Consumer
	store          *store.Store
	eventPublisher NotificationPublisher
	eventHandler   *broker.EventHandler
	logger         *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	consumer *broker.Consumer,
	store *store.Store,
	eventPublisher NotificationPublisher,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer:       consumer,
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentConfirmed(w.HandlePaymentConfirmed)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

// HandlePaymentConfirmed applies one payment confirmation. Confirmations
// are deduplicated through the processed_events table so a redelivered
// message neither double-marks nor double-notifies.
func (w *NotificationWorker) HandlePaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationWorker.HandlePaymentConfirmed")
	defer span.End()

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Info("Handling payment confirmation",
		zap.Int64("order_id", event.OrderID),
		zap.String("tx_id", event.TxID))

	order, err := w.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	if err := w.store.SetPaymentMarker(ctx, event.OrderID, models.PaymentMarkerPaid); err != nil {
		return fmt.Errorf("failed to set payment marker: %w", err)
	}

	count, err := w.store.IncrementNotifications(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to increment notifications: %w", err)
	}
	util.NotificationsSentTotal.Inc()

	sent := &models.NotificationSentEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeNotificationSent,
			Timestamp: time.Now(),
		},
		OrderID: event.OrderID,
		UserID:  order.UserID,
		Count:   count,
	}
	if err := w.eventPublisher.PublishNotificationSent(ctx, sent); err != nil {
		w.logger.Error("Failed to publish NotificationSent event", zap.Error(err))
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	w.logger.Info("Payment confirmation applied",
		zap.Int64("order_id", event.OrderID),
		zap.Int("notifications_sent", count))
	return nil
}
