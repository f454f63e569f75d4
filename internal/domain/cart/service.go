// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service enforces quantity rules on top of the Store: per-line quantities
// are capped at min(configured max, live availability).
type Service struct {
	db        *gorm.DB
	store     Store
	inventory *inventory.Service
	config    *config.Config
	logger    *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, store Store, inv *inventory.Service, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		store:     store,
		inventory: inv,
		config:    cfg,
		logger:    logger,
	}
}

// Store exposes the underlying store for the checkout orchestrator.
func (s *Service) Store() Store {
	return s.store
}

// GetCart returns the enriched cart for an identity. Lines whose variant has
// disappeared from the catalog are dropped from the view.
func (s *Service) GetCart(ctx context.Context, id Identity) (*View, error) {
	lines, err := s.store.List(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &View{
		Items:    make([]ItemView, 0, len(lines)),
		Currency: s.config.Checkout.Currency,
	}

	for _, line := range lines {
		var variant catalog.ProductVariant
		err := s.db.WithContext(ctx).
			Preload("Product").
			Preload("Color").
			Preload("Size").
			First(&variant, line.VariantID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}

		available, err := s.inventory.AvailableQuantity(variant.ID)
		if err != nil {
			return nil, err
		}

		unitPrice := variant.Product.CurrentPrice()
		item := ItemView{
			VariantID:   variant.ID,
			Variant:     &variant,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			LineTotal:   unitPrice * int64(line.Quantity),
			Available:   available,
			MaxQuantity: s.capFor(available),
		}
		view.Items = append(view.Items, item)
		view.ItemCount++
		view.TotalQuantity += line.Quantity
		view.Subtotal += item.LineTotal
	}

	return view, nil
}

// AddItem adds a variant to the cart, incrementing an existing line. The
// resulting quantity is clamped to the per-line cap.
func (s *Service) AddItem(ctx context.Context, id Identity, variantID uint, quantity int) error {
	if quantity < 1 {
		return apperrors.Validation("quantity must be at least 1")
	}
	if quantity > s.config.Checkout.MaxItemQuantity {
		return apperrors.Validation("quantity cannot exceed %d", s.config.Checkout.MaxItemQuantity)
	}

	variant, available, err := s.purchasableVariant(ctx, variantID)
	if err != nil {
		return err
	}

	limit := s.capFor(available)
	if limit == 0 {
		return apperrors.Availability("item is out of stock", apperrors.LineIssue{
			VariantID: variant.ID,
			SKU:       variant.SKU,
			Requested: quantity,
			Available: available,
			Reason:    "insufficient stock",
		})
	}

	existing := 0
	lines, err := s.store.List(ctx, id)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line.VariantID == variantID {
			existing = line.Quantity
			break
		}
	}

	next := existing + quantity
	if next > limit {
		next = limit
	}

	return s.store.Put(ctx, id, variantID, next)
}

// UpdateQuantity sets a line to an absolute quantity, clamped to the cap.
func (s *Service) UpdateQuantity(ctx context.Context, id Identity, variantID uint, quantity int) error {
	if quantity < 1 {
		return apperrors.Validation("quantity must be at least 1")
	}
	if quantity > s.config.Checkout.MaxItemQuantity {
		return apperrors.Validation("quantity cannot exceed %d", s.config.Checkout.MaxItemQuantity)
	}

	lines, err := s.store.List(ctx, id)
	if err != nil {
		return err
	}
	found := false
	for _, line := range lines {
		if line.VariantID == variantID {
			found = true
			break
		}
	}
	if !found {
		return apperrors.NotFound("cart item", variantID)
	}

	variant, available, err := s.purchasableVariant(ctx, variantID)
	if err != nil {
		return err
	}

	limit := s.capFor(available)
	if limit == 0 {
		return apperrors.Availability("item is out of stock", apperrors.LineIssue{
			VariantID: variant.ID,
			SKU:       variant.SKU,
			Requested: quantity,
			Available: available,
			Reason:    "insufficient stock",
		})
	}
	if quantity > limit {
		quantity = limit
	}

	return s.store.Put(ctx, id, variantID, quantity)
}

// RemoveItem deletes one line.
func (s *Service) RemoveItem(ctx context.Context, id Identity, variantID uint) error {
	return s.store.Remove(ctx, id, variantID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, id Identity) error {
	return s.store.Clear(ctx, id)
}

// ClearUserCart empties a user's cart by ID. Used by account erasure.
func (s *Service) ClearUserCart(ctx context.Context, userID uint) error {
	return s.store.Clear(ctx, Identity{UserID: &userID})
}

// ItemCount returns the total quantity across all lines.
func (s *Service) ItemCount(ctx context.Context, id Identity) (int, error) {
	lines, err := s.store.List(ctx, id)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count, nil
}

// MergeOnLogin folds the guest cart into the user cart, summing quantities
// per variant capped at min(configured max, live availability), the same cap
// AddItem applies. The user rows are written in one transaction; clearing the
// guest blob afterwards is best effort, since a leftover blob only expires,
// it can never double-charge.
func (s *Service) MergeOnLogin(ctx context.Context, userID uint, sessionID string) error {
	guestID := Identity{SessionID: sessionID}
	guestLines, err := s.store.List(ctx, guestID)
	if err != nil {
		return err
	}
	if len(guestLines) == 0 {
		return nil
	}

	limits := make(map[uint]int, len(guestLines))
	for _, line := range guestLines {
		available, err := s.inventory.AvailableQuantity(line.VariantID)
		if err != nil {
			// guest lines for vanished variants are dropped, as in GetCart
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				continue
			}
			return err
		}
		limits[line.VariantID] = s.capFor(available)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range guestLines {
			limit, ok := limits[line.VariantID]
			if !ok || limit == 0 {
				continue
			}

			var existing CartItem
			err := tx.Where("user_id = ? AND product_variant_id = ?", userID, line.VariantID).
				First(&existing).Error

			quantity := line.Quantity
			if err == nil {
				quantity += existing.Quantity
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if quantity > limit {
				quantity = limit
			}

			item := CartItem{
				UserID:           userID,
				ProductVariantID: line.VariantID,
				Quantity:         quantity,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_variant_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()}),
			}).Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to merge guest cart: %w", err)
	}

	if err := s.store.Clear(ctx, guestID); err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).
			Warn("Failed to clear guest cart after merge")
	}

	return nil
}

// PurgeStaleUserCarts deletes user cart rows untouched for longer than the
// retention window; guest blobs expire via TTL on their own.
func (s *Service) PurgeStaleUserCarts() (int64, error) {
	cutoff := time.Now().Add(-s.config.Checkout.GuestCartTTL)
	result := s.db.Where("updated_at < ?", cutoff).Delete(&CartItem{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge stale carts: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.WithField("count", result.RowsAffected).Info("Purged stale cart rows")
	}
	return result.RowsAffected, nil
}

func (s *Service) capFor(available int) int {
	if available < s.config.Checkout.MaxItemQuantity {
		return available
	}
	return s.config.Checkout.MaxItemQuantity
}

func (s *Service) purchasableVariant(ctx context.Context, variantID uint) (*catalog.ProductVariant, int, error) {
	var variant catalog.ProductVariant
	err := s.db.WithContext(ctx).Preload("Product").First(&variant, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperrors.NotFound("product variant", variantID)
		}
		return nil, 0, err
	}

	if variant.Product != nil && !variant.Product.IsActive {
		return nil, 0, apperrors.Validation("product is no longer available")
	}

	available, err := s.inventory.AvailableQuantity(variant.ID)
	if err != nil {
		return nil, 0, err
	}
	return &variant, available, nil
}
