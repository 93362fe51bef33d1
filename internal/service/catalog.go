package service

import (
	"context"
	"fmt"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"
	"github.com/guimac3do/chica-y-nino-sub001/internal/redisclient"
	"github.com/guimac3do/chica-y-nino-sub001/internal/store"
	"github.com/guimac3do/chica-y-nino-sub001/internal/util"

	"go.uber.org/zap"
)

// CatalogClient answers the two questions the cart and order flows ask of
// the catalog: what does a variant cost right now, and is its campaign
// still selling. Reads go through Redis with a DB fallback.
type CatalogClient struct {
	store    *store.Store
	redis    *redisclient.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogClient creates a new catalog client
func NewCatalogClient(store *store.Store, redis *redisclient.Client, cacheTTL time.Duration) *CatalogClient {
	return &CatalogClient{
		store:    store,
		redis:    redis,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// VariantPricing resolves a variant to its product, unit price and
// campaign window (fast path via Redis).
func (cc *CatalogClient) VariantPricing(ctx context.Context, variantID int64) (*models.VariantPricing, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.VariantPricing")
	defer span.End()

	if pricing, ok := cc.cachedPricing(ctx, variantID); ok {
		return pricing, nil
	}

	pricing, err := cc.store.GetVariantPricing(ctx, variantID)
	if err != nil {
		return nil, err
	}

	cc.fillCache(ctx, pricing)
	return pricing, nil
}

func (cc *CatalogClient) cachedPricing(ctx context.Context, variantID int64) (*models.VariantPricing, bool) {
	productID, campaignID, unitPrice, ok, err := cc.redis.GetVariantPricing(ctx, variantID)
	if err != nil {
		cc.logger.Warn("Pricing cache read failed, falling back to DB",
			zap.Int64("variant_id", variantID),
			zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	status, startsAt, endsAt, ok, err := cc.redis.GetCampaignWindow(ctx, campaignID)
	if err != nil || !ok {
		return nil, false
	}

	return &models.VariantPricing{
		VariantID:  variantID,
		ProductID:  productID,
		UnitPrice:  unitPrice,
		CampaignID: campaignID,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		CampStatus: status,
	}, true
}

func (cc *CatalogClient) fillCache(ctx context.Context, pricing *models.VariantPricing) {
	if err := cc.redis.SetVariantPricing(ctx, pricing, cc.cacheTTL); err != nil {
		cc.logger.Warn("Failed to cache variant pricing",
			zap.Int64("variant_id", pricing.VariantID),
			zap.Error(err))
	}

	campaign := &models.Campaign{
		ID:       pricing.CampaignID,
		StartsAt: pricing.StartsAt,
		EndsAt:   pricing.EndsAt,
		Status:   pricing.CampStatus,
	}
	if err := cc.redis.SetCampaign(ctx, campaign, cc.cacheTTL); err != nil {
		cc.logger.Warn("Failed to cache campaign window",
			zap.Int64("campaign_id", pricing.CampaignID),
			zap.Error(err))
	}
}

// CampaignActive reports whether a campaign currently admits sales
// (fast path via Redis).
func (cc *CatalogClient) CampaignActive(ctx context.Context, campaignID int64, now time.Time) (bool, error) {
	status, startsAt, endsAt, ok, err := cc.redis.GetCampaignWindow(ctx, campaignID)
	if err != nil {
		cc.logger.Warn("Campaign cache read failed, falling back to DB",
			zap.Int64("campaign_id", campaignID),
			zap.Error(err))
	}
	if ok && err == nil {
		c := models.Campaign{StartsAt: startsAt, EndsAt: endsAt, Status: status}
		return c.IsActive(now), nil
	}

	campaign, err := cc.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return false, err
	}

	if err := cc.redis.SetCampaign(ctx, campaign, cc.cacheTTL); err != nil {
		cc.logger.Warn("Failed to cache campaign window",
			zap.Int64("campaign_id", campaignID),
			zap.Error(err))
	}

	return campaign.IsActive(now), nil
}

// ProductVisible reports whether a product's campaign currently admits
// sales.
func (cc *CatalogClient) ProductVisible(ctx context.Context, productID int64, now time.Time) (bool, error) {
	product, err := cc.store.GetProductByID(ctx, productID)
	if err != nil {
		return false, err
	}
	return cc.CampaignActive(ctx, product.CampaignID, now)
}

// ColorAvailable reports whether a product offers the given color. A
// product with no declared colors accepts any.
func (cc *CatalogClient) ColorAvailable(ctx context.Context, productID int64, color string) (bool, error) {
	colors, err := cc.store.GetProductColors(ctx, productID)
	if err != nil {
		return false, err
	}
	if len(colors) == 0 {
		return true, nil
	}
	for _, c := range colors {
		if c.Name == color {
			return true, nil
		}
	}
	return false, nil
}

// SyncCampaignsToRedis warms the campaign cache at startup
func (cc *CatalogClient) SyncCampaignsToRedis(ctx context.Context) error {
	cc.logger.Info("Starting campaign sync to Redis")

	campaigns, err := cc.store.GetCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("failed to get campaigns: %w", err)
	}

	for i := range campaigns {
		if err := cc.redis.SetCampaign(ctx, &campaigns[i], cc.cacheTTL); err != nil {
			cc.logger.Error("Failed to cache campaign",
				zap.Int64("campaign_id", campaigns[i].ID),
				zap.Error(err))
		}
	}

	cc.logger.Info("Campaign sync completed", zap.Int("count", len(campaigns)))
	return nil
}
