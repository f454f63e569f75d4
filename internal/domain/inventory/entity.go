// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
)

// MovementType represents the direction of a ledger entry
type MovementType string

const (
	MovementTypeIn         MovementType = "in"
	MovementTypeOut        MovementType = "out"
	MovementTypeAdjustment MovementType = "adjustment"
)

// ReferenceType records what caused a movement
type ReferenceType string

const (
	ReferenceOrder          ReferenceType = "order"
	ReferenceOrderCancelled ReferenceType = "order_cancelled"
	ReferenceRestock        ReferenceType = "restock"
	ReferenceManual         ReferenceType = "manual"
)

// StockMovement is one immutable ledger entry. Quantity is the signed delta
// that was actually applied after clamping, so on-hand always equals the sum
// of movement quantities for a variant.
type StockMovement struct {
	ID               uint                    `gorm:"primaryKey" json:"id"`
	VariantID        uint                    `gorm:"not null;index" json:"variant_id"`
	Variant          *catalog.ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
	MovementType     MovementType            `gorm:"not null;size:20" json:"movement_type"`
	Quantity         int                     `gorm:"not null" json:"quantity"`
	PreviousQuantity int                     `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int                     `gorm:"not null" json:"new_quantity"`
	ReferenceType    ReferenceType           `gorm:"not null;size:30;index" json:"reference_type"`
	OrderID          *uint                   `gorm:"index" json:"order_id,omitempty"`
	Notes            string                  `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy        *uint                   `gorm:"index" json:"created_by,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// TableName overrides the table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// AlertType classifies a persisted stock alert
type AlertType string

const (
	AlertLowStock   AlertType = "low_stock"
	AlertOutOfStock AlertType = "out_of_stock"
)

// StockAlert represents low stock alerts for the admin surface
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	VariantID  uint       `gorm:"not null;index" json:"variant_id"`
	AlertType  AlertType  `gorm:"not null;size:20" json:"alert_type"`
	Message    string     `gorm:"type:text" json:"message"`
	IsResolved bool       `gorm:"default:false;index" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (StockAlert) TableName() string {
	return "stock_alerts"
}

// SignalType identifies a stock transition observers can react to
type SignalType string

const (
	SignalLowStock   SignalType = "low_stock"
	SignalOutOfStock SignalType = "out_of_stock"
	SignalRestocked  SignalType = "restocked"
)

// Signal describes a stock transition. Signals are dispatched after the
// transaction that caused them has committed.
type Signal struct {
	Type      SignalType `json:"type"`
	VariantID uint       `json:"variant_id"`
	ProductID uint       `json:"product_id"`
	Quantity  int        `json:"quantity"`
	Threshold int        `json:"threshold"`
}

// Notifier receives stock signals. Delivery is fire-and-forget;
// implementations log their own failures.
type Notifier interface {
	Notify(signal Signal)
}

// AvailabilityResult is the outcome of a purchasability check.
type AvailabilityResult struct {
	VariantID uint   `json:"variant_id"`
	SKU       string `json:"sku,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	OK        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
}
