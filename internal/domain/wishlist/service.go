// internal/domain/wishlist/service.go
package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"github.com/your-org/fashion-store-backend/internal/pkg/dbutil"
	"github.com/your-org/fashion-store-backend/internal/pkg/email"
	"gorm.io/gorm"
)

// Service handles wishlist business logic. It also implements
// inventory.Notifier: on a restocked signal it mails every user who asked to
// be told when the variant comes back.
type Service struct {
	db           *gorm.DB
	logger       *logrus.Logger
	emailService *email.EmailService
}

// NewService creates a new wishlist service
func NewService(db *gorm.DB, logger *logrus.Logger, emailService *email.EmailService) *Service {
	return &Service{
		db:           db,
		logger:       logger,
		emailService: emailService,
	}
}

// List returns the user's wishlist enriched with live availability and price.
func (s *Service) List(ctx context.Context, userID uint) ([]ItemView, error) {
	var items []WishlistItem
	err := s.db.WithContext(ctx).
		Preload("Variant.Product").
		Preload("Variant.Color").
		Preload("Variant.Size").
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		view := ItemView{
			ID:               item.ID,
			ProductVariantID: item.ProductVariantID,
			Variant:          item.Variant,
			NotifyRestock:    item.NotifyRestock,
			AddedAt:          item.AddedAt,
		}
		if item.Variant != nil {
			view.IsAvailable = item.Variant.IsAvailable && item.Variant.StockQuantity > 0
			if item.Variant.Product != nil {
				view.CurrentPrice = item.Variant.Product.CurrentPrice()
				view.IsAvailable = view.IsAvailable && item.Variant.Product.IsActive
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Add saves a variant on the user's wishlist. Adding the same variant twice
// is not an error.
func (s *Service) Add(ctx context.Context, userID, variantID uint, notifyRestock bool) (*WishlistItem, error) {
	var variant catalog.ProductVariant
	err := s.db.WithContext(ctx).Preload("Product").First(&variant, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product variant", variantID)
		}
		return nil, err
	}
	if variant.Product != nil && !variant.Product.IsActive {
		return nil, apperrors.Validation("product is no longer available")
	}

	item := WishlistItem{
		UserID:           userID,
		ProductVariantID: variantID,
		NotifyRestock:    notifyRestock,
		AddedAt:          s.db.NowFunc(),
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if dbutil.IsDuplicateKey(err) {
			var existing WishlistItem
			if err := s.db.WithContext(ctx).
				Where("user_id = ? AND product_variant_id = ?", userID, variantID).
				First(&existing).Error; err != nil {
				return nil, err
			}
			if notifyRestock && !existing.NotifyRestock {
				existing.NotifyRestock = true
				if err := s.db.WithContext(ctx).Model(&existing).
					Update("notify_restock", true).Error; err != nil {
					return nil, err
				}
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return &item, nil
}

// Remove deletes a variant from the user's wishlist.
func (s *Service) Remove(ctx context.Context, userID, variantID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND product_variant_id = ?", userID, variantID).
		Delete(&WishlistItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("wishlist item", variantID)
	}
	return nil
}

// Clear removes every item for a user. Used on account erasure.
func (s *Service) Clear(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&WishlistItem{}).Error
}

// Count returns the number of saved items.
func (s *Service) Count(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&WishlistItem{}).
		Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Notify implements inventory.Notifier. Only restocked signals matter here;
// delivery failures are logged, never returned.
func (s *Service) Notify(signal inventory.Signal) {
	if signal.Type != inventory.SignalRestocked {
		return
	}

	type recipient struct {
		UserID uint
		Email  string
	}
	var recipients []recipient
	err := s.db.Table("wishlist_items").
		Select("wishlist_items.user_id, users.email").
		Joins("JOIN users ON users.id = wishlist_items.user_id").
		Where("wishlist_items.product_variant_id = ? AND wishlist_items.notify_restock = ? AND wishlist_items.deleted_at IS NULL",
			signal.VariantID, true).
		Scan(&recipients).Error
	if err != nil {
		s.logger.WithError(err).WithField("variant_id", signal.VariantID).
			Warn("Failed to resolve restock notification recipients")
		return
	}
	if len(recipients) == 0 {
		return
	}

	var variant catalog.ProductVariant
	if err := s.db.Preload("Product").Preload("Color").Preload("Size").
		First(&variant, signal.VariantID).Error; err != nil {
		s.logger.WithError(err).WithField("variant_id", signal.VariantID).
			Warn("Failed to load variant for restock notification")
		return
	}

	ctx := context.Background()
	for _, r := range recipients {
		if r.Email == "" {
			continue
		}
		msg := &email.Email{
			To:      []string{r.Email},
			Subject: fmt.Sprintf("%s is back in stock", variant.DisplayName()),
			TextContent: fmt.Sprintf("Good news: %s (%s) is available again.\n",
				variant.DisplayName(), variant.SKU),
			Type: email.EmailTypeBackInStock,
		}
		if err := s.emailService.SendEmail(ctx, msg); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"variant_id": signal.VariantID,
				"user_id":    r.UserID,
			}).Warn("Failed to send back-in-stock notification")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"variant_id": signal.VariantID,
		"recipients": len(recipients),
	}).Info("Back-in-stock notifications dispatched")
}
