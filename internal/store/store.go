package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection, used by tests
func NewStoreWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductColors retrieves the color options for a product
func (s *Store) GetProductColors(ctx context.Context, productID int64) ([]models.ProductColor, error) {
	var colors []models.ProductColor
	err := s.db.SelectContext(ctx, &colors,
		"SELECT * FROM product_colors WHERE product_id = $1 ORDER BY id", productID)
	return colors, err
}

// GetVariantByID retrieves a product variant by ID
func (s *Store) GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := s.db.GetContext(ctx, &variant, "SELECT * FROM product_variants WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("variant %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetProductVariants retrieves the size/price variants of a product
func (s *Store) GetProductVariants(ctx context.Context, productID int64) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := s.db.SelectContext(ctx, &variants,
		"SELECT * FROM product_variants WHERE product_id = $1 ORDER BY id", productID)
	return variants, err
}

// GetCampaignByID retrieves a campaign by ID
func (s *Store) GetCampaignByID(ctx context.Context, id int64) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.db.GetContext(ctx, &campaign, "SELECT * FROM campaigns WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// GetCampaigns retrieves all campaigns
func (s *Store) GetCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.db.SelectContext(ctx, &campaigns, "SELECT * FROM campaigns ORDER BY id")
	return campaigns, err
}

const variantPricingQuery = `
	SELECT v.id AS variant_id, v.product_id, v.price AS unit_price,
	       c.id AS campaign_id, c.starts_at, c.ends_at, c.status AS camp_status
	FROM product_variants v
	JOIN products p ON p.id = v.product_id
	JOIN campaigns c ON c.id = p.campaign_id
	WHERE v.id = $1`

// GetVariantPricing resolves a variant reference to its current unit price
// and the campaign window that governs its visibility.
func (s *Store) GetVariantPricing(ctx context.Context, variantID int64) (*models.VariantPricing, error) {
	var pricing models.VariantPricing
	err := s.db.GetContext(ctx, &pricing, variantPricingQuery, variantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("variant %d: %w", variantID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &pricing, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
