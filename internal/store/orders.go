package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"
)

// ConsolidateCart turns an owner's cart into one order inside a single
// transaction: read the cart with row locks, snapshot each valid line into
// an order line (price copied from the variant), clear the cart, commit.
// A failure anywhere rolls the whole thing back, so no order without lines
// and no half-drained cart can be observed.
func (s *Store) ConsolidateCart(ctx context.Context, owner models.CartOwner, userID int64, notes string, now time.Time) (*models.Order, []models.OrderLine, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin: %v", models.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	var views []models.CartLineView
	if err := tx.SelectContext(ctx, &views, cartLineViewQuery+" FOR UPDATE OF l", owner.Kind, owner.ID); err != nil {
		return nil, nil, fmt.Errorf("%w: read cart: %v", models.ErrTransactionFailed, err)
	}

	valid := make([]models.CartLineView, 0, len(views))
	for _, v := range views {
		if v.Active(now) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return nil, nil, models.ErrEmptyCart
	}

	var order models.Order
	err = tx.GetContext(ctx, &order, `
		INSERT INTO orders (user_id, notes, payment_marker)
		VALUES ($1, $2, $3)
		RETURNING *`,
		userID, notes, models.PaymentMarkerPending)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create order: %v", models.ErrTransactionFailed, err)
	}

	lines := make([]models.OrderLine, 0, len(valid))
	for _, v := range valid {
		line := models.OrderLine{
			OrderID:       order.ID,
			ProductID:     v.ProductID,
			VariantID:     v.VariantID,
			Quantity:      v.Quantity,
			Color:         v.Color,
			UnitPrice:     v.UnitPrice,
			PaymentStatus: models.PaymentStatusPending,
			StockStatus:   models.StockStatusPending,
		}
		err = tx.GetContext(ctx, &line, `
			INSERT INTO order_lines (order_id, product_id, variant_id, quantity, color, unit_price, payment_status, stock_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *`,
			line.OrderID, line.ProductID, line.VariantID, line.Quantity,
			line.Color, line.UnitPrice, line.PaymentStatus, line.StockStatus)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: create order line: %v", models.ErrTransactionFailed, err)
		}
		lines = append(lines, line)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE owner_kind = $1 AND owner_id = $2",
		owner.Kind, owner.ID); err != nil {
		return nil, nil, fmt.Errorf("%w: clear cart: %v", models.ErrTransactionFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: commit: %v", models.ErrTransactionFailed, err)
	}

	return &order, lines, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrderLines retrieves all lines of an order
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// GetOrderLine retrieves a single line of an order
func (s *Store) GetOrderLine(ctx context.Context, orderID, lineID int64) (*models.OrderLine, error) {
	var line models.OrderLine
	err := s.db.GetContext(ctx, &line,
		"SELECT * FROM order_lines WHERE id = $1 AND order_id = $2", lineID, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order line %d: %w", lineID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// UpdateLinePaymentStatus sets a line's payment status
func (s *Store) UpdateLinePaymentStatus(ctx context.Context, lineID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE order_lines SET payment_status = $1 WHERE id = $2", status, lineID)
	return err
}

// UpdateLineStatuses writes the provided status columns of one line in a
// single statement, so a caller setting both can never persist one without
// the other. Nil fields are left untouched.
func (s *Store) UpdateLineStatuses(ctx context.Context, lineID int64, paymentStatus, stockStatus *string) error {
	switch {
	case paymentStatus != nil && stockStatus != nil:
		_, err := s.db.ExecContext(ctx,
			"UPDATE order_lines SET payment_status = $1, stock_status = $2 WHERE id = $3",
			*paymentStatus, *stockStatus, lineID)
		return err
	case paymentStatus != nil:
		_, err := s.db.ExecContext(ctx,
			"UPDATE order_lines SET payment_status = $1 WHERE id = $2", *paymentStatus, lineID)
		return err
	case stockStatus != nil:
		_, err := s.db.ExecContext(ctx,
			"UPDATE order_lines SET stock_status = $1 WHERE id = $2", *stockStatus, lineID)
		return err
	}
	return nil
}

// CancelOrderLines sets every line of an order to cancelled. Cancellation
// is a status, never a deletion.
func (s *Store) CancelOrderLines(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE order_lines SET payment_status = $1 WHERE order_id = $2",
		models.PaymentStatusCancelled, orderID)
	return err
}

// SetPaymentMarker updates the coarse order-level payment marker
func (s *Store) SetPaymentMarker(ctx context.Context, orderID int64, marker string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_marker = $1 WHERE id = $2", marker, orderID)
	return err
}

// IncrementNotifications bumps the order's notifications-sent counter and
// returns the new count.
func (s *Store) IncrementNotifications(ctx context.Context, orderID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"UPDATE orders SET notifications_sent = notifications_sent + 1 WHERE id = $1 RETURNING notifications_sent",
		orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	return count, err
}

// CampaignSales holds the revenue rollup for one campaign
type CampaignSales struct {
	Revenue int64 `db:"revenue" json:"revenue"`
	Units   int64 `db:"units" json:"units"`
}

// SalesByCampaign aggregates quantity and snapshotted revenue across all
// non-cancelled order lines of the campaign's products.
func (s *Store) SalesByCampaign(ctx context.Context, campaignID int64) (*CampaignSales, error) {
	var sales CampaignSales
	err := s.db.GetContext(ctx, &sales, `
		SELECT COALESCE(SUM(ol.quantity * ol.unit_price), 0) AS revenue,
		       COALESCE(SUM(ol.quantity), 0) AS units
		FROM order_lines ol
		JOIN products p ON p.id = ol.product_id
		WHERE p.campaign_id = $1 AND ol.payment_status <> $2`,
		campaignID, models.PaymentStatusCancelled)
	if err != nil {
		return nil, err
	}
	return &sales, nil
}
