package models

import "time"

// Event types
const (
	EventTypeOrderPlaced       = "ORDER_PLACED"
	EventTypeOrderCancelled    = "ORDER_CANCELLED"
	EventTypeLineStatusChanged = "LINE_STATUS_CHANGED"
	EventTypePaymentConfirmed  = "PAYMENT_CONFIRMED"
	EventTypeNotificationSent  = "NOTIFICATION_SENT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderLineData represents line data carried in events
type OrderLineData struct {
	ProductID int64  `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderPlacedEvent published when a cart is consolidated into an order
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount int64           `json:"total_amount"`
	Lines       []OrderLineData `json:"lines"`
}

// OrderCancelledEvent published when a whole order is cancelled
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Reason  string `json:"reason"`
}

// LineStatusChangedEvent published on any line status transition
type LineStatusChangedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	LineID        int64  `json:"line_id"`
	PaymentStatus string `json:"payment_status,omitempty"`
	StockStatus   string `json:"stock_status,omitempty"`
}

// PaymentConfirmedEvent is consumed from the external payment path; it
// flips the order-level payment marker and triggers a notification.
type PaymentConfirmedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	TxID    string `json:"tx_id"`
	Amount  int64  `json:"amount"`
}

// NotificationSentEvent published after the customer has been notified
type NotificationSentEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
	Count   int   `json:"count"`
}
