package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"

	"github.com/jmoiron/sqlx"
)

const cartLineViewQuery = `
	SELECT l.*, v.price AS unit_price,
	       c.id AS campaign_id, c.starts_at, c.ends_at, c.status AS camp_status
	FROM cart_lines l
	JOIN product_variants v ON v.id = l.variant_id
	JOIN products p ON p.id = l.product_id
	JOIN campaigns c ON c.id = p.campaign_id
	WHERE l.owner_kind = $1 AND l.owner_id = $2
	ORDER BY l.id`

// UpsertCartLine inserts a cart line or, when a line for the same
// (owner, product, variant, color) exists, increments its quantity.
func (s *Store) UpsertCartLine(ctx context.Context, line *models.CartLine) error {
	query := `
		INSERT INTO cart_lines (owner_kind, owner_id, product_id, variant_id, color, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_kind, owner_id, product_id, variant_id, color)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, quantity, created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		line.OwnerKind, line.OwnerID, line.ProductID, line.VariantID, line.Color, line.Quantity)
	return row.Scan(&line.ID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt)
}

// GetCartLines retrieves an owner's cart lines with current pricing and
// campaign window attached.
func (s *Store) GetCartLines(ctx context.Context, owner models.CartOwner) ([]models.CartLineView, error) {
	var lines []models.CartLineView
	err := s.db.SelectContext(ctx, &lines, cartLineViewQuery, owner.Kind, owner.ID)
	return lines, err
}

// GetCartLineByID retrieves a single cart line, scoped to its owner
func (s *Store) GetCartLineByID(ctx context.Context, owner models.CartOwner, lineID int64) (*models.CartLine, error) {
	var line models.CartLine
	err := s.db.GetContext(ctx, &line,
		"SELECT * FROM cart_lines WHERE id = $1 AND owner_kind = $2 AND owner_id = $3",
		lineID, owner.Kind, owner.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart line %d: %w", lineID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// UpdateCartLineQuantity sets a line's quantity, scoped to its owner
func (s *Store) UpdateCartLineQuantity(ctx context.Context, owner models.CartOwner, lineID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_lines SET quantity = $1, updated_at = NOW() WHERE id = $2 AND owner_kind = $3 AND owner_id = $4",
		quantity, lineID, owner.Kind, owner.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, lineID)
}

// DeleteCartLine removes a line, scoped to its owner
func (s *Store) DeleteCartLine(ctx context.Context, owner models.CartOwner, lineID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE id = $1 AND owner_kind = $2 AND owner_id = $3",
		lineID, owner.Kind, owner.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, lineID)
}

// DeleteCartLinesByID removes lines by primary key, used by the
// inactive-campaign prune in GetCart.
func (s *Store) DeleteCartLinesByID(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM cart_lines WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// ClearCart removes all of an owner's cart lines
func (s *Store) ClearCart(ctx context.Context, owner models.CartOwner) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE owner_kind = $1 AND owner_id = $2",
		owner.Kind, owner.ID)
	return err
}

func requireAffected(res sql.Result, lineID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, models.ErrNotFound)
	}
	return nil
}
