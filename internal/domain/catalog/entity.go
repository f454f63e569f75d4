// internal/domain/catalog/entity.go
package catalog

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Product represents a sellable article. Prices are tax-inclusive cents.
type Product struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	SKU          string         `json:"sku" gorm:"uniqueIndex;size:100;not null"`
	Name         string         `json:"name" gorm:"size:255;not null"`
	Slug         string         `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	Description  string         `json:"description" gorm:"type:text"`
	RegularPrice int64          `json:"regular_price" gorm:"not null"`
	SalePrice    *int64         `json:"sale_price,omitempty"`
	IsActive     bool           `json:"is_active" gorm:"default:true;index"`
	IsFeatured   bool           `json:"is_featured" gorm:"default:false"`
	Variants     []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// CurrentPrice returns the sale price when one is set, the regular price otherwise.
func (p *Product) CurrentPrice() int64 {
	if p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice
	}
	return p.RegularPrice
}

// IsOnSale returns true when a sale price undercuts the regular price.
func (p *Product) IsOnSale() bool {
	return p.SalePrice != nil && *p.SalePrice > 0 && *p.SalePrice < p.RegularPrice
}

// Color is a variant axis.
type Color struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	HexCode   string    `json:"hex_code" gorm:"size:7"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Color) TableName() string {
	return "colors"
}

// Size is a variant axis.
type Size struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Name      string    `json:"name" gorm:"size:50;not null;uniqueIndex"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Size) TableName() string {
	return "sizes"
}

// ProductVariant is the stock-keeping unit: one product in one color and size.
// StockQuantity is the on-hand count owned by the inventory ledger; IsAvailable
// is recomputed by the ledger on every mutation, never set independently.
type ProductVariant struct {
	ID                uint      `json:"id" gorm:"primarykey"`
	ProductID         uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_variant_combo"`
	Product           *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	ColorID           uint      `json:"color_id" gorm:"not null;uniqueIndex:idx_variant_combo"`
	Color             *Color    `json:"color,omitempty" gorm:"foreignKey:ColorID"`
	SizeID            uint      `json:"size_id" gorm:"not null;uniqueIndex:idx_variant_combo"`
	Size              *Size     `json:"size,omitempty" gorm:"foreignKey:SizeID"`
	SKU               string    `json:"sku" gorm:"uniqueIndex;size:100;not null"`
	StockQuantity     int       `json:"stock_quantity" gorm:"not null;default:0"`
	LowStockThreshold int       `json:"low_stock_threshold" gorm:"not null;default:5"`
	IsAvailable       bool      `json:"is_available" gorm:"default:false;index"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (ProductVariant) TableName() string {
	return "product_variants"
}

// DisplayName renders "Product - Color / Size" for order snapshots and mails.
func (v *ProductVariant) DisplayName() string {
	name := v.SKU
	if v.Product != nil {
		name = v.Product.Name
	}
	color, size := "", ""
	if v.Color != nil {
		color = v.Color.Name
	}
	if v.Size != nil {
		size = v.Size.Name
	}
	if color == "" && size == "" {
		return name
	}
	return fmt.Sprintf("%s - %s / %s", name, color, size)
}

// CanBePurchased checks the static purchase gates against on-hand stock.
// Callers that must respect open reservations use the inventory service,
// which aggregates pending unpaid orders on top of this.
func (v *ProductVariant) CanBePurchased(quantity int) bool {
	if quantity < 1 {
		return false
	}
	if !v.IsAvailable {
		return false
	}
	if v.Product != nil && !v.Product.IsActive {
		return false
	}
	return v.StockQuantity >= quantity
}
