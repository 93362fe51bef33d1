package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStoreWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

var cartViewColumns = []string{
	"id", "owner_kind", "owner_id", "product_id", "variant_id", "color",
	"quantity", "created_at", "updated_at",
	"unit_price", "campaign_id", "starts_at", "ends_at", "camp_status",
}

func TestUpsertCartLineIncrementsOnConflict(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	// Adding 3 to a line already holding 2 yields one line with quantity 5.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO cart_lines")).
		WithArgs(models.OwnerKindUser, "42", int64(7), int64(70), "red", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity", "created_at", "updated_at"}).
			AddRow(int64(11), 5, now, now))

	line := &models.CartLine{
		OwnerKind: models.OwnerKindUser,
		OwnerID:   "42",
		ProductID: 7,
		VariantID: 70,
		Color:     "red",
		Quantity:  3,
	}
	err := s.UpsertCartLine(context.Background(), line)
	require.NoError(t, err)

	assert.Equal(t, int64(11), line.ID)
	assert.Equal(t, 5, line.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCartLines(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_lines l")).
		WithArgs(models.OwnerKindSession, "tok-abc").
		WillReturnRows(sqlmock.NewRows(cartViewColumns).
			AddRow(int64(1), models.OwnerKindSession, "tok-abc", int64(7), int64(70), "red",
				2, now, now,
				int64(2000), int64(3), now.Add(-time.Hour), now.Add(time.Hour), models.CampaignStatusActive))

	lines, err := s.GetCartLines(context.Background(), models.SessionOwner("tok-abc"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(4000), lines[0].Subtotal())
	assert.True(t, lines[0].Active(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCartLineQuantityNotOwned(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE cart_lines SET quantity")).
		WithArgs(4, int64(99), models.OwnerKindUser, "42").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateCartLineQuantity(context.Background(), models.UserOwner(42), 99, 4)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCartLinesByID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_lines WHERE id IN (?, ?)")).
		WithArgs(int64(3), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := s.DeleteCartLinesByID(context.Background(), []int64{3, 9})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCartLinesByIDEmpty(t *testing.T) {
	s, _ := newMockStore(t)
	assert.NoError(t, s.DeleteCartLinesByID(context.Background(), nil))
}

func TestClearCart(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_lines WHERE owner_kind = $1 AND owner_id = $2")).
		WithArgs(models.OwnerKindSession, "tok-abc").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := s.ClearCart(context.Background(), models.SessionOwner("tok-abc"))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
