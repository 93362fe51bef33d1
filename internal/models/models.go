package models

import (
	"strconv"
	"time"
)

// Brand groups campaigns under a label
type Brand struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Campaign bounds the visibility window of its products
type Campaign struct {
	ID       int64     `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	BrandID  int64     `db:"brand_id" json:"brand_id"`
	Gender   string    `db:"gender" json:"gender"`
	StartsAt time.Time `db:"starts_at" json:"starts_at"`
	EndsAt   time.Time `db:"ends_at" json:"ends_at"`
	Status   string    `db:"status" json:"status"`
}

// Campaign statuses
const (
	CampaignStatusActive   = "ACTIVE"
	CampaignStatusPaused   = "PAUSED"
	CampaignStatusFinished = "FINISHED"
)

// IsActive reports whether the campaign window contains now and the campaign
// has not been administratively paused or finished.
func (c *Campaign) IsActive(now time.Time) bool {
	return c.Status == CampaignStatusActive &&
		!now.Before(c.StartsAt) && !now.After(c.EndsAt)
}

// Product belongs to exactly one campaign
type Product struct {
	ID          int64     `db:"id" json:"id"`
	CampaignID  int64     `db:"campaign_id" json:"campaign_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	BasePrice   int64     `db:"base_price" json:"base_price"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ProductVariant is a size/price option of a product. Prices are mutable,
// which is why order lines snapshot them at consolidation time.
type ProductVariant struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Size      string `db:"size" json:"size"`
	Price     int64  `db:"price" json:"price"`
}

// ProductColor is one color option of a product
type ProductColor struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	ImageURL  string `db:"image_url" json:"image_url,omitempty"`
}

// Owner kinds for cart lines
const (
	OwnerKindUser    = "USER"
	OwnerKindSession = "SESSION"
)

// CartOwner identifies who a cart belongs to: an authenticated user or an
// anonymous session. Both kinds flow through the same cart code path.
type CartOwner struct {
	Kind string
	ID   string
}

// UserOwner builds an owner for an authenticated user
func UserOwner(userID int64) CartOwner {
	return CartOwner{Kind: OwnerKindUser, ID: strconv.FormatInt(userID, 10)}
}

// SessionOwner builds an owner for an anonymous session token
func SessionOwner(token string) CartOwner {
	return CartOwner{Kind: OwnerKindSession, ID: token}
}

// CartLine is one selected variant in a cart. At most one line exists per
// (owner, product, variant, color); repeated adds increment quantity.
type CartLine struct {
	ID        int64     `db:"id" json:"id"`
	OwnerKind string    `db:"owner_kind" json:"-"`
	OwnerID   string    `db:"owner_id" json:"-"`
	ProductID int64     `db:"product_id" json:"product_id"`
	VariantID int64     `db:"variant_id" json:"variant_id"`
	Color     string    `db:"color" json:"color"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Order is a consolidated cart. The payment marker is coarse and is written
// only by the payment-confirmation consumer; the display status is derived
// from the lines and never stored.
type Order struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	Notes             string    `db:"notes" json:"notes,omitempty"`
	PaymentMarker     string    `db:"payment_marker" json:"payment_marker"`
	NotificationsSent int       `db:"notifications_sent" json:"notifications_sent"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// OrderLine is an immutable snapshot of a cart line; only the two status
// columns change after creation. Lines are never deleted.
type OrderLine struct {
	ID            int64     `db:"id" json:"id"`
	OrderID       int64     `db:"order_id" json:"order_id"`
	ProductID     int64     `db:"product_id" json:"product_id"`
	VariantID     int64     `db:"variant_id" json:"variant_id"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Color         string    `db:"color" json:"color"`
	UnitPrice     int64     `db:"unit_price" json:"unit_price"`
	PaymentStatus string    `db:"payment_status" json:"payment_status"`
	StockStatus   string    `db:"stock_status" json:"stock_status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Line payment statuses
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusPaid      = "PAID"
	PaymentStatusCancelled = "CANCELLED"
)

// Line stock statuses
const (
	StockStatusPending = "PENDING"
	StockStatusArrived = "ARRIVED"
)

// Order payment markers
const (
	PaymentMarkerPending = "PENDING"
	PaymentMarkerPaid    = "PAID"
)

// Derived order-level statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

// VariantPricing is what the catalog returns for a variant reference: enough
// to price a line and decide product visibility.
type VariantPricing struct {
	VariantID  int64     `db:"variant_id" json:"variant_id"`
	ProductID  int64     `db:"product_id" json:"product_id"`
	UnitPrice  int64     `db:"unit_price" json:"unit_price"`
	CampaignID int64     `db:"campaign_id" json:"campaign_id"`
	StartsAt   time.Time `db:"starts_at" json:"starts_at"`
	EndsAt     time.Time `db:"ends_at" json:"ends_at"`
	CampStatus string    `db:"camp_status" json:"campaign_status"`
}

// Active reports whether the variant's campaign currently admits sales
func (vp *VariantPricing) Active(now time.Time) bool {
	return vp.CampStatus == CampaignStatusActive &&
		!now.Before(vp.StartsAt) && !now.After(vp.EndsAt)
}

// CartLineView is a cart line joined with its current variant price and
// campaign window, the shape cart reads and consolidation work from.
type CartLineView struct {
	CartLine
	UnitPrice  int64     `db:"unit_price" json:"unit_price"`
	CampaignID int64     `db:"campaign_id" json:"campaign_id"`
	StartsAt   time.Time `db:"starts_at" json:"-"`
	EndsAt     time.Time `db:"ends_at" json:"-"`
	CampStatus string    `db:"camp_status" json:"-"`
}

// Active reports whether the line's campaign currently admits sales
func (v *CartLineView) Active(now time.Time) bool {
	return v.CampStatus == CampaignStatusActive &&
		!now.Before(v.StartsAt) && !now.After(v.EndsAt)
}

// Subtotal is unit price times quantity
func (v *CartLineView) Subtotal() int64 {
	return v.UnitPrice * int64(v.Quantity)
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
