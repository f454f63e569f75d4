// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
)

// CartItem represents a cart line stored in the database for signed-in users
type CartItem struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex:idx_user_variant" json:"user_id"`
	ProductVariantID uint      `gorm:"not null;uniqueIndex:idx_user_variant" json:"product_variant_id"`
	Quantity         int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// SessionCart is a guest cart stored as one JSON blob in Redis, keyed by
// variant and expiring with the session retention window.
type SessionCart struct {
	SessionID string    `json:"session_id"`
	Items     []Line    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Line is one backend-agnostic cart line.
type Line struct {
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

// Identity selects the cart backend: user rows when signed in, the session
// blob otherwise. Checkout consumes carts through this, never through auth
// state directly.
type Identity struct {
	UserID    *uint
	SessionID string
}

// IsUser reports whether the identity belongs to a signed-in user.
func (id Identity) IsUser() bool {
	return id.UserID != nil && *id.UserID > 0
}

// ItemView is an enriched cart line for API responses.
type ItemView struct {
	VariantID   uint                    `json:"variant_id"`
	Variant     *catalog.ProductVariant `json:"variant,omitempty"`
	Quantity    int                     `json:"quantity"`
	UnitPrice   int64                   `json:"unit_price"`
	LineTotal   int64                   `json:"line_total"`
	Available   int                     `json:"available"`
	MaxQuantity int                     `json:"max_quantity"`
}

// View is the cart as returned to clients.
type View struct {
	Items         []ItemView `json:"items"`
	ItemCount     int        `json:"item_count"`
	TotalQuantity int        `json:"total_quantity"`
	Subtotal      int64      `json:"subtotal"`
	Currency      string     `json:"currency"`
}
