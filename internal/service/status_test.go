package service

import (
	"testing"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPaymentTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{models.PaymentStatusPending, models.PaymentStatusPaid, true},
		{models.PaymentStatusPending, models.PaymentStatusCancelled, true},
		{models.PaymentStatusPaid, models.PaymentStatusCancelled, true},
		{models.PaymentStatusPaid, models.PaymentStatusPending, false},
		{models.PaymentStatusCancelled, models.PaymentStatusPaid, false},
		{models.PaymentStatusCancelled, models.PaymentStatusPending, false},
		// re-applying the current status is always allowed
		{models.PaymentStatusPending, models.PaymentStatusPending, true},
		{models.PaymentStatusPaid, models.PaymentStatusPaid, true},
		{models.PaymentStatusCancelled, models.PaymentStatusCancelled, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, PaymentTransitionAllowed(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStockTransitionApplies(t *testing.T) {
	assert.True(t, StockTransitionApplies(models.StockStatusPending, models.StockStatusArrived))
	// reversal and same-status are no-ops, not errors
	assert.False(t, StockTransitionApplies(models.StockStatusArrived, models.StockStatusPending))
	assert.False(t, StockTransitionApplies(models.StockStatusArrived, models.StockStatusArrived))
	assert.False(t, StockTransitionApplies(models.StockStatusPending, models.StockStatusPending))
}

func TestValidStatusDomains(t *testing.T) {
	assert.True(t, ValidPaymentStatus(models.PaymentStatusPaid))
	assert.False(t, ValidPaymentStatus("SHIPPED"))
	assert.False(t, ValidPaymentStatus(""))

	assert.True(t, ValidStockStatus(models.StockStatusArrived))
	assert.False(t, ValidStockStatus(models.PaymentStatusPaid+"X"))
	assert.False(t, ValidStockStatus("BACKORDER"))
}

func TestDeriveOrderStatus(t *testing.T) {
	pending := models.OrderLine{PaymentStatus: models.PaymentStatusPending}
	paid := models.OrderLine{PaymentStatus: models.PaymentStatusPaid}
	cancelled := models.OrderLine{PaymentStatus: models.PaymentStatusCancelled}

	t.Run("all lines cancelled wins over paid marker", func(t *testing.T) {
		lines := []models.OrderLine{cancelled, cancelled}
		assert.Equal(t, models.OrderStatusCancelled,
			DeriveOrderStatus(lines, models.PaymentMarkerPaid))
	})

	t.Run("paid marker when any line survives", func(t *testing.T) {
		lines := []models.OrderLine{cancelled, paid}
		assert.Equal(t, models.OrderStatusPaid,
			DeriveOrderStatus(lines, models.PaymentMarkerPaid))
	})

	t.Run("pending by default", func(t *testing.T) {
		lines := []models.OrderLine{pending, cancelled}
		assert.Equal(t, models.OrderStatusPending,
			DeriveOrderStatus(lines, models.PaymentMarkerPending))
	})

	t.Run("no lines never reads as cancelled", func(t *testing.T) {
		assert.Equal(t, models.OrderStatusPending,
			DeriveOrderStatus(nil, models.PaymentMarkerPending))
		assert.Equal(t, models.OrderStatusPaid,
			DeriveOrderStatus(nil, models.PaymentMarkerPaid))
	})
}
