package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/guimac3do/chica-y-nino-sub001/internal/models"
	"github.com/guimac3do/chica-y-nino-sub001/internal/store"
	"github.com/guimac3do/chica-y-nino-sub001/internal/util"

	"go.uber.org/zap"
)

// MergeLocker single-flights a cart merge per target user; satisfied by
// redisclient.Client.
type MergeLocker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// CartService handles cart business logic for both anonymous and
// authenticated owners.
type CartService struct {
	store        *store.Store
	catalog      *CatalogClient
	locker       MergeLocker
	mergeLockTTL time.Duration
	logger       *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(
	store *store.Store,
	catalog *CatalogClient,
	locker MergeLocker,
	mergeLockTTL time.Duration,
) *CartService {
	return &CartService{
		store:        store,
		catalog:      catalog,
		locker:       locker,
		mergeLockTTL: mergeLockTTL,
		logger:       util.GetLogger(),
	}
}

// Cart is the computed view of an owner's cart: the surviving lines plus
// their total at current variant prices.
type Cart struct {
	Lines []models.CartLineView `json:"lines"`
	Total int64                 `json:"total"`
}

// CartTotal sums unit price times quantity across lines
func CartTotal(lines []models.CartLineView) int64 {
	var total int64
	for i := range lines {
		total += lines[i].Subtotal()
	}
	return total
}

// AddLine validates the selection against the catalog and adds it to the
// owner's cart. A line for the same (product, variant, color) already in
// the cart has its quantity incremented instead.
func (s *CartService) AddLine(ctx context.Context, owner models.CartOwner, productID, variantID int64, color string, quantity int) (*Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddLine")
	defer span.End()

	if quantity < 1 {
		return nil, fmt.Errorf("quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}

	pricing, err := s.catalog.VariantPricing(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if pricing.ProductID != productID {
		return nil, fmt.Errorf("variant %d does not belong to product %d: %w",
			variantID, productID, models.ErrValidationFailed)
	}
	if !pricing.Active(time.Now()) {
		return nil, fmt.Errorf("product %d is not currently for sale: %w",
			productID, models.ErrNotFound)
	}

	available, err := s.catalog.ColorAvailable(ctx, productID, color)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("color %q not offered for product %d: %w",
			color, productID, models.ErrValidationFailed)
	}

	line := &models.CartLine{
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		ProductID: productID,
		VariantID: variantID,
		Color:     color,
		Quantity:  quantity,
	}
	if err := s.store.UpsertCartLine(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to add cart line: %w", err)
	}

	util.CartLinesAddedTotal.Inc()
	s.logger.Info("Cart line added",
		zap.String("owner", owner.ID),
		zap.Int64("variant_id", variantID),
		zap.Int("quantity", line.Quantity))

	return s.GetCart(ctx, owner)
}

// GetCart returns the owner's cart. Lines whose campaign is no longer
// active are deleted, not merely filtered, so repeated calls converge.
func (s *CartService) GetCart(ctx context.Context, owner models.CartOwner) (*Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	views, err := s.store.GetCartLines(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	now := time.Now()
	live := make([]models.CartLineView, 0, len(views))
	var stale []int64
	for _, v := range views {
		if v.Active(now) {
			live = append(live, v)
		} else {
			stale = append(stale, v.ID)
		}
	}

	if len(stale) > 0 {
		if err := s.store.DeleteCartLinesByID(ctx, stale); err != nil {
			return nil, fmt.Errorf("failed to prune expired cart lines: %w", err)
		}
		util.CartLinesPrunedTotal.Add(float64(len(stale)))
		s.logger.Info("Pruned expired cart lines",
			zap.String("owner", owner.ID),
			zap.Int("count", len(stale)))
	}

	return &Cart{Lines: live, Total: CartTotal(live)}, nil
}

// RemoveLine deletes a line from the owner's cart
func (s *CartService) RemoveLine(ctx context.Context, owner models.CartOwner, lineID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveLine")
	defer span.End()

	return s.store.DeleteCartLine(ctx, owner, lineID)
}

// UpdateQuantity sets a line's quantity; quantities below 1 are rejected
func (s *CartService) UpdateQuantity(ctx context.Context, owner models.CartOwner, lineID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if quantity < 1 {
		return fmt.Errorf("quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}
	return s.store.UpdateCartLineQuantity(ctx, owner, lineID, quantity)
}

// MergeAnonymousCart folds an anonymous session's cart into the user's
// cart on login. Each anonymous line behaves like AddLine against the user
// (the dedup rule sums quantities); the session cart is cleared afterwards,
// so a retried merge finds nothing to move. A short Redis lock keeps
// concurrent retries from interleaving.
func (s *CartService) MergeAnonymousCart(ctx context.Context, sessionToken string, userID int64) (*Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.MergeAnonymousCart")
	defer span.End()

	userOwner := models.UserOwner(userID)

	lockKey := "cart-merge:user-" + strconv.FormatInt(userID, 10)
	acquired, err := s.locker.AcquireLock(ctx, lockKey, s.mergeLockTTL)
	if err != nil {
		s.logger.Warn("Merge lock unavailable, proceeding unlocked", zap.Error(err))
	} else if !acquired {
		// A concurrent merge for this user is in flight; its clear of the
		// session cart makes this call a no-op either way.
		s.logger.Info("Merge already in flight", zap.Int64("user_id", userID))
		return s.GetCart(ctx, userOwner)
	} else {
		defer func() {
			if err := s.locker.ReleaseLock(ctx, lockKey); err != nil {
				s.logger.Warn("Failed to release merge lock", zap.Error(err))
			}
		}()
	}

	sessionOwner := models.SessionOwner(sessionToken)
	anonLines, err := s.store.GetCartLines(ctx, sessionOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to read anonymous cart: %w", err)
	}

	now := time.Now()
	merged := 0
	for _, v := range anonLines {
		if !v.Active(now) {
			continue
		}
		line := &models.CartLine{
			OwnerKind: userOwner.Kind,
			OwnerID:   userOwner.ID,
			ProductID: v.ProductID,
			VariantID: v.VariantID,
			Color:     v.Color,
			Quantity:  v.Quantity,
		}
		if err := s.store.UpsertCartLine(ctx, line); err != nil {
			return nil, fmt.Errorf("failed to merge cart line: %w", err)
		}
		merged++
	}

	if err := s.store.ClearCart(ctx, sessionOwner); err != nil {
		return nil, fmt.Errorf("failed to clear anonymous cart: %w", err)
	}

	util.CartMergesTotal.Inc()
	s.logger.Info("Anonymous cart merged",
		zap.Int64("user_id", userID),
		zap.Int("lines", merged))

	return s.GetCart(ctx, userOwner)
}
