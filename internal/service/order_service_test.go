package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"
	"github.com/guimac3do/chica-y-nino-sub001/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	placed      []*models.OrderPlacedEvent
	cancelled   []*models.OrderCancelledEvent
	lineChanges []*models.LineStatusChangedEvent
}

func (p *stubPublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	p.placed = append(p.placed, e)
	return nil
}

func (p *stubPublisher) PublishOrderCancelled(_ context.Context, e *models.OrderCancelledEvent) error {
	p.cancelled = append(p.cancelled, e)
	return nil
}

func (p *stubPublisher) PublishLineStatusChanged(_ context.Context, e *models.LineStatusChangedEvent) error {
	p.lineChanges = append(p.lineChanges, e)
	return nil
}

func newMockOrderService(t *testing.T) (*OrderService, sqlmock.Sqlmock, *stubPublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := store.NewStoreWithDB(sqlx.NewDb(db, "sqlmock"))
	pub := &stubPublisher{}
	return NewOrderService(s, pub), mock, pub
}

var orderColumns = []string{
	"id", "user_id", "notes", "payment_marker", "notifications_sent", "created_at",
}

var orderLineColumns = []string{
	"id", "order_id", "product_id", "variant_id", "quantity", "color",
	"unit_price", "payment_status", "stock_status", "created_at",
}

func expectOrderRow(mock sqlmock.Sqlmock, orderID, userID int64, marker string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders WHERE id = $1")).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(orderID, userID, "", marker, 0, time.Now()))
}

func expectLineRow(mock sqlmock.Sqlmock, orderID, lineID int64, paymentStatus, stockStatus string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM order_lines WHERE id = $1 AND order_id = $2")).
		WithArgs(lineID, orderID).
		WillReturnRows(sqlmock.NewRows(orderLineColumns).
			AddRow(lineID, orderID, int64(7), int64(70), 2, "red",
				int64(2000), paymentStatus, stockStatus, time.Now()))
}

func TestGetOrderHidesOtherUsersOrders(t *testing.T) {
	svc, mock, _ := newMockOrderService(t)
	expectOrderRow(mock, 100, 7, models.PaymentMarkerPending)

	_, err := svc.GetOrder(context.Background(), 42, 100)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderForbiddenForOtherUsers(t *testing.T) {
	svc, mock, pub := newMockOrderService(t)
	expectOrderRow(mock, 100, 7, models.PaymentMarkerPending)

	_, err := svc.CancelOrder(context.Background(), 42, 100)
	assert.True(t, errors.Is(err, models.ErrForbidden))
	assert.Empty(t, pub.cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderBulkCancelsLines(t *testing.T) {
	svc, mock, pub := newMockOrderService(t)
	now := time.Now()

	expectOrderRow(mock, 100, 42, models.PaymentMarkerPending)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_lines SET payment_status")).
		WithArgs(models.PaymentStatusCancelled, int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM order_lines WHERE order_id = $1")).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows(orderLineColumns).
			AddRow(int64(500), int64(100), int64(7), int64(70), 2, "red",
				int64(2000), models.PaymentStatusCancelled, models.StockStatusPending, now).
			AddRow(int64(501), int64(100), int64(8), int64(81), 1, "blue",
				int64(3500), models.PaymentStatusCancelled, models.StockStatusArrived, now))

	view, err := svc.CancelOrder(context.Background(), 42, 100)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, view.Status)
	require.Len(t, pub.cancelled, 1)
	assert.Equal(t, int64(100), pub.cancelled[0].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderItemIsIdempotent(t *testing.T) {
	svc, mock, pub := newMockOrderService(t)

	expectOrderRow(mock, 100, 42, models.PaymentMarkerPending)
	expectLineRow(mock, 100, 500, models.PaymentStatusCancelled, models.StockStatusPending)

	line, err := svc.CancelOrderItem(context.Background(), 42, 100, 500)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, line.PaymentStatus)
	assert.Empty(t, pub.lineChanges)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLineStatusTransitions(t *testing.T) {
	paid := models.PaymentStatusPaid
	arrived := models.StockStatusArrived

	t.Run("pending line moves to paid and arrived in one write", func(t *testing.T) {
		svc, mock, pub := newMockOrderService(t)
		expectLineRow(mock, 100, 500, models.PaymentStatusPending, models.StockStatusPending)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE order_lines SET payment_status = $1, stock_status = $2 WHERE id = $3")).
			WithArgs(paid, arrived, int64(500)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		line, err := svc.UpdateLineStatus(context.Background(), 100, 500,
			LineStatusUpdate{PaymentStatus: &paid, StockStatus: &arrived})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusPaid, line.PaymentStatus)
		assert.Equal(t, models.StockStatusArrived, line.StockStatus)
		require.Len(t, pub.lineChanges, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stock arrives on its own", func(t *testing.T) {
		svc, mock, pub := newMockOrderService(t)
		expectLineRow(mock, 100, 500, models.PaymentStatusPending, models.StockStatusPending)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE order_lines SET stock_status = $1 WHERE id = $2")).
			WithArgs(arrived, int64(500)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		line, err := svc.UpdateLineStatus(context.Background(), 100, 500,
			LineStatusUpdate{StockStatus: &arrived})
		require.NoError(t, err)
		assert.Equal(t, models.StockStatusArrived, line.StockStatus)
		assert.Equal(t, models.PaymentStatusPending, line.PaymentStatus)
		require.Len(t, pub.lineChanges, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid stock value leaves a valid payment change unwritten", func(t *testing.T) {
		svc, mock, pub := newMockOrderService(t)
		expectLineRow(mock, 100, 500, models.PaymentStatusPending, models.StockStatusPending)

		bogus := "BACKORDER"
		_, err := svc.UpdateLineStatus(context.Background(), 100, 500,
			LineStatusUpdate{PaymentStatus: &paid, StockStatus: &bogus})
		assert.True(t, errors.Is(err, models.ErrInvalidStatus))
		assert.Empty(t, pub.lineChanges)
		// no UPDATE was expected; a write attempt would fail this
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same status is a no-op success", func(t *testing.T) {
		svc, mock, pub := newMockOrderService(t)
		expectLineRow(mock, 100, 500, models.PaymentStatusPaid, models.StockStatusPending)

		line, err := svc.UpdateLineStatus(context.Background(), 100, 500,
			LineStatusUpdate{PaymentStatus: &paid})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, line.PaymentStatus)
		assert.Empty(t, pub.lineChanges)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled line cannot become paid", func(t *testing.T) {
		svc, mock, _ := newMockOrderService(t)
		expectLineRow(mock, 100, 500, models.PaymentStatusCancelled, models.StockStatusPending)

		_, err := svc.UpdateLineStatus(context.Background(), 100, 500,
			LineStatusUpdate{PaymentStatus: &paid})
		assert.True(t, errors.Is(err, models.ErrInvalidStatus))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown status value is rejected", func(t *testing.T) {
		svc, mock, _ := newMockOrderService(t)
		expectLineRow(mock, 100, 500, models.PaymentStatusPending, models.StockStatusPending)

		bogus := "SHIPPED"
		_, err := svc.UpdateLineStatus(context.Background(), 100, 500,
			LineStatusUpdate{PaymentStatus: &bogus})
		assert.True(t, errors.Is(err, models.ErrInvalidStatus))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stock reversal is a no-op not an error", func(t *testing.T) {
		svc, mock, pub := newMockOrderService(t)
		expectLineRow(mock, 100, 500, models.PaymentStatusPending, models.StockStatusArrived)

		pending := models.StockStatusPending
		line, err := svc.UpdateLineStatus(context.Background(), 100, 500,
			LineStatusUpdate{StockStatus: &pending})
		require.NoError(t, err)
		assert.Equal(t, models.StockStatusArrived, line.StockStatus)
		assert.Empty(t, pub.lineChanges)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		svc, _, _ := newMockOrderService(t)

		_, err := svc.UpdateLineStatus(context.Background(), 100, 500, LineStatusUpdate{})
		assert.True(t, errors.Is(err, models.ErrValidationFailed))
	})
}

func TestGetSalesByCampaign(t *testing.T) {
	svc, mock, _ := newMockOrderService(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM campaigns WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "brand_id", "gender", "starts_at", "ends_at", "status"}).
			AddRow(int64(3), "winter", int64(1), "girls", now.Add(-time.Hour), now.Add(time.Hour), models.CampaignStatusActive))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_lines ol")).
		WithArgs(int64(3), models.PaymentStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"revenue", "units"}).AddRow(int64(30), int64(3)))

	report, err := svc.GetSalesByCampaign(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(30), report.Revenue)
	assert.Equal(t, int64(3), report.Units)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSalesByCampaignUnknownCampaign(t *testing.T) {
	svc, mock, _ := newMockOrderService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM campaigns WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "brand_id", "gender", "starts_at", "ends_at", "status"}))

	_, err := svc.GetSalesByCampaign(context.Background(), 9)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
