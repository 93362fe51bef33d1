package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"
	"github.com/guimac3do/chica-y-nino-sub001/internal/util"

	"go.uber.org/zap"
)

// Payment status state machine: PENDING→PAID, PENDING→CANCELLED,
// PAID→CANCELLED. Nothing leaves CANCELLED. Re-applying the current status
// is a no-op success, never an error.
//
// Stock status: PENDING→ARRIVED only. An attempted reversal is treated as
// a no-op rather than an error since nothing destructive follows from it.

// ValidPaymentStatus reports whether s is in the payment enum domain
func ValidPaymentStatus(s string) bool {
	switch s {
	case models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusCancelled:
		return true
	}
	return false
}

// ValidStockStatus reports whether s is in the stock enum domain
func ValidStockStatus(s string) bool {
	switch s {
	case models.StockStatusPending, models.StockStatusArrived:
		return true
	}
	return false
}

// PaymentTransitionAllowed reports whether from→to is a legal payment
// transition. Same-status is allowed (idempotent no-op).
func PaymentTransitionAllowed(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case models.PaymentStatusPending:
		return to == models.PaymentStatusPaid || to == models.PaymentStatusCancelled
	case models.PaymentStatusPaid:
		return to == models.PaymentStatusCancelled
	}
	return false
}

// StockTransitionApplies reports whether from→to should be written. Both
// same-status and the undefined ARRIVED→PENDING reversal are accepted as
// no-ops (false, nil error).
func StockTransitionApplies(from, to string) bool {
	return from == models.StockStatusPending && to == models.StockStatusArrived
}

// DeriveOrderStatus computes the order-level display status from its
// lines and the coarse payment marker. It is never persisted. Cancellation
// takes precedence over the marker.
func DeriveOrderStatus(lines []models.OrderLine, paymentMarker string) string {
	if len(lines) > 0 {
		allCancelled := true
		for _, l := range lines {
			if l.PaymentStatus != models.PaymentStatusCancelled {
				allCancelled = false
				break
			}
		}
		if allCancelled {
			return models.OrderStatusCancelled
		}
	}
	if paymentMarker == models.PaymentMarkerPaid {
		return models.OrderStatusPaid
	}
	return models.OrderStatusPending
}

// LineStatusUpdate is a partial update of a line's two status fields
type LineStatusUpdate struct {
	PaymentStatus *string `json:"payment_status,omitempty"`
	StockStatus   *string `json:"stock_status,omitempty"`
}

// UpdateLineStatus applies a partial status update to one order line.
// Each provided field is validated against its enum and the state machine;
// setting the already-current value succeeds without a write.
func (s *OrderService) UpdateLineStatus(ctx context.Context, orderID, lineID int64, update LineStatusUpdate) (*models.OrderLine, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateLineStatus")
	defer span.End()

	if update.PaymentStatus == nil && update.StockStatus == nil {
		return nil, fmt.Errorf("no status fields provided: %w", models.ErrValidationFailed)
	}

	line, err := s.store.GetOrderLine(ctx, orderID, lineID)
	if err != nil {
		return nil, err
	}

	// Validate every provided field before writing anything, so a request
	// mixing a legal transition with a bad one changes nothing.
	var paymentTarget, stockTarget *string

	if update.PaymentStatus != nil {
		target := strings.ToUpper(*update.PaymentStatus)
		if !ValidPaymentStatus(target) {
			util.InvalidTransitionsTotal.WithLabelValues("payment").Inc()
			return nil, fmt.Errorf("payment status %q: %w", *update.PaymentStatus, models.ErrInvalidStatus)
		}
		if !PaymentTransitionAllowed(line.PaymentStatus, target) {
			util.InvalidTransitionsTotal.WithLabelValues("payment").Inc()
			return nil, fmt.Errorf("payment transition %s→%s: %w",
				line.PaymentStatus, target, models.ErrInvalidStatus)
		}
		if target != line.PaymentStatus {
			paymentTarget = &target
		}
	}

	if update.StockStatus != nil {
		target := strings.ToUpper(*update.StockStatus)
		if !ValidStockStatus(target) {
			util.InvalidTransitionsTotal.WithLabelValues("stock").Inc()
			return nil, fmt.Errorf("stock status %q: %w", *update.StockStatus, models.ErrInvalidStatus)
		}
		if StockTransitionApplies(line.StockStatus, target) {
			stockTarget = &target
		}
	}

	if paymentTarget == nil && stockTarget == nil {
		return line, nil
	}

	if err := s.store.UpdateLineStatuses(ctx, lineID, paymentTarget, stockTarget); err != nil {
		return nil, fmt.Errorf("failed to update line status: %w", err)
	}

	var changedPayment, changedStock string
	if paymentTarget != nil {
		line.PaymentStatus = *paymentTarget
		changedPayment = *paymentTarget
		util.LineStatusTransitionsTotal.WithLabelValues("payment", *paymentTarget).Inc()
	}
	if stockTarget != nil {
		line.StockStatus = *stockTarget
		changedStock = *stockTarget
		util.LineStatusTransitionsTotal.WithLabelValues("stock", *stockTarget).Inc()
	}

	s.logger.Info("Order line status updated",
		zap.Int64("order_id", orderID),
		zap.Int64("line_id", lineID),
		zap.String("payment_status", line.PaymentStatus),
		zap.String("stock_status", line.StockStatus))
	s.publishLineStatusChanged(ctx, orderID, lineID, changedPayment, changedStock)

	return line, nil
}

// CampaignSalesReport is the revenue rollup returned for a campaign
type CampaignSalesReport struct {
	CampaignID int64 `json:"campaign_id"`
	Revenue    int64 `json:"revenue"`
	Units      int64 `json:"units"`
}

// GetSalesByCampaign aggregates quantity and snapshotted revenue across
// all non-cancelled order lines of the campaign's products.
func (s *OrderService) GetSalesByCampaign(ctx context.Context, campaignID int64) (*CampaignSalesReport, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetSalesByCampaign")
	defer span.End()

	if _, err := s.store.GetCampaignByID(ctx, campaignID); err != nil {
		return nil, err
	}

	sales, err := s.store.SalesByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate campaign sales: %w", err)
	}

	return &CampaignSalesReport{
		CampaignID: campaignID,
		Revenue:    sales.Revenue,
		Units:      sales.Units,
	}, nil
}
