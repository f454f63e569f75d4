// internal/domain/wishlist/entity.go
package wishlist

import (
	"time"

	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// WishlistItem represents a saved product variant. NotifyRestock marks items
// whose owner asked to be mailed when the variant comes back in stock.
type WishlistItem struct {
	ID               uint                    `gorm:"primaryKey" json:"id"`
	UserID           uint                    `gorm:"not null;uniqueIndex:idx_wishlist_user_variant" json:"user_id"`
	ProductVariantID uint                    `gorm:"not null;uniqueIndex:idx_wishlist_user_variant" json:"product_variant_id"`
	Variant          *catalog.ProductVariant `gorm:"foreignKey:ProductVariantID" json:"variant,omitempty"`
	NotifyRestock    bool                    `gorm:"default:false" json:"notify_restock"`
	AddedAt          time.Time               `json:"added_at"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	DeletedAt        gorm.DeletedAt          `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (WishlistItem) TableName() string {
	return "wishlist_items"
}

// ItemView is a wishlist item enriched with live catalog data.
type ItemView struct {
	ID               uint                    `json:"id"`
	ProductVariantID uint                    `json:"product_variant_id"`
	Variant          *catalog.ProductVariant `json:"variant,omitempty"`
	NotifyRestock    bool                    `json:"notify_restock"`
	AddedAt          time.Time               `json:"added_at"`
	IsAvailable      bool                    `json:"is_available"`
	CurrentPrice     int64                   `json:"current_price"`
}
