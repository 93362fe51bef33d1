package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func campaignKey(campaignID int64) string {
	return fmt.Sprintf("campaign:%d", campaignID)
}

func pricingKey(variantID int64) string {
	return fmt.Sprintf("pricing:%d", variantID)
}

// SetCampaign caches a campaign's activity window with a TTL so paused or
// finished campaigns age out of cart visibility checks quickly.
func (c *Client) SetCampaign(ctx context.Context, campaign *models.Campaign, ttl time.Duration) error {
	key := campaignKey(campaign.ID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "status", campaign.Status)
	pipe.HSet(ctx, key, "starts_at", campaign.StartsAt.Unix())
	pipe.HSet(ctx, key, "ends_at", campaign.EndsAt.Unix())
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// GetCampaignWindow retrieves a cached campaign window. The bool result is
// false on a cache miss.
func (c *Client) GetCampaignWindow(ctx context.Context, campaignID int64) (status string, startsAt, endsAt time.Time, ok bool, err error) {
	result, err := c.rdb.HGetAll(ctx, campaignKey(campaignID)).Result()
	if err != nil {
		return "", time.Time{}, time.Time{}, false, err
	}
	if len(result) == 0 {
		return "", time.Time{}, time.Time{}, false, nil
	}

	start, err := strconv.ParseInt(result["starts_at"], 10, 64)
	if err != nil {
		return "", time.Time{}, time.Time{}, false, fmt.Errorf("corrupt campaign cache entry: %w", err)
	}
	end, err := strconv.ParseInt(result["ends_at"], 10, 64)
	if err != nil {
		return "", time.Time{}, time.Time{}, false, fmt.Errorf("corrupt campaign cache entry: %w", err)
	}

	return result["status"], time.Unix(start, 0), time.Unix(end, 0), true, nil
}

// SetVariantPricing caches a variant's product mapping, campaign and
// current unit price.
func (c *Client) SetVariantPricing(ctx context.Context, pricing *models.VariantPricing, ttl time.Duration) error {
	key := pricingKey(pricing.VariantID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "product_id", pricing.ProductID)
	pipe.HSet(ctx, key, "campaign_id", pricing.CampaignID)
	pipe.HSet(ctx, key, "unit_price", pricing.UnitPrice)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// GetVariantPricing retrieves cached variant pricing. The bool result is
// false on a cache miss. The campaign window is cached separately under
// the campaign key.
func (c *Client) GetVariantPricing(ctx context.Context, variantID int64) (productID, campaignID, unitPrice int64, ok bool, err error) {
	result, err := c.rdb.HGetAll(ctx, pricingKey(variantID)).Result()
	if err != nil {
		return 0, 0, 0, false, err
	}
	if len(result) == 0 {
		return 0, 0, 0, false, nil
	}

	productID, err = strconv.ParseInt(result["product_id"], 10, 64)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("corrupt pricing cache entry: %w", err)
	}
	campaignID, err = strconv.ParseInt(result["campaign_id"], 10, 64)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("corrupt pricing cache entry: %w", err)
	}
	unitPrice, err = strconv.ParseInt(result["unit_price"], 10, 64)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("corrupt pricing cache entry: %w", err)
	}

	return productID, campaignID, unitPrice, true, nil
}

// InvalidateCampaign drops a cached campaign window
func (c *Client) InvalidateCampaign(ctx context.Context, campaignID int64) error {
	return c.rdb.Del(ctx, campaignKey(campaignID)).Err()
}

// AcquireLock acquires a short-lived lock, used to single-flight a cart
// merge for one target user.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
