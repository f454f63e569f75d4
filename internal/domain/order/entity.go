// internal/domain/order/entity.go
package order

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed" // shipped; fulfilment done
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// AddressType distinguishes the two address rows an order carries
type AddressType string

const (
	AddressTypeBilling  AddressType = "billing"
	AddressTypeShipping AddressType = "shipping"
)

// Order represents the order aggregate. A pending unpaid order implicitly
// reserves its line quantities; stock only moves when payment settles.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        *uint         `gorm:"index" json:"user_id"` // Nullable for guest orders
	GuestEmail    string        `gorm:"size:255" json:"guest_email,omitempty"`
	Status        OrderStatus   `gorm:"not null;default:'pending';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending';index" json:"payment_status"`
	PaymentMethod string        `gorm:"size:30" json:"payment_method"`

	// Financial information, in cents; subtotal and total are tax-inclusive
	SubtotalAmount int64 `gorm:"not null" json:"subtotal_amount"`
	TaxAmount      int64 `gorm:"default:0" json:"tax_amount"`
	ShippingAmount int64 `gorm:"default:0" json:"shipping_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`

	Currency string `gorm:"size:3;default:'EUR'" json:"currency"`
	Notes    string `gorm:"type:text" json:"notes"`

	// Shipping information
	ShippingMethod  string `gorm:"size:100" json:"shipping_method"`
	TrackingNumber  string `gorm:"size:100" json:"tracking_number"`
	CancelledReason string `gorm:"size:255" json:"cancelled_reason,omitempty"`

	// Timestamps
	PaidAt      *time.Time     `json:"paid_at"`
	ShippedAt   *time.Time     `json:"shipped_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CancelledAt *time.Time     `json:"cancelled_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Addresses     []OrderAddress       `gorm:"foreignKey:OrderID" json:"addresses,omitempty"`
	Transactions  []PaymentTransaction `gorm:"foreignKey:OrderID" json:"transactions,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID" json:"status_history,omitempty"`
}

// TableName overrides the table name
func (Order) TableName() string {
	return "orders"
}

// CanBeCancelled reports whether cancellation is still legal.
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// IsPaid reports whether payment has settled.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// HoldsReservation reports whether the order still counts against
// available stock.
func (o *Order) HoldsReservation() bool {
	return o.Status == OrderStatusPending && o.PaymentStatus != PaymentStatusPaid
}

// OrderItem is an immutable snapshot of a cart line at submission time.
// Later catalog edits never change what was sold.
type OrderItem struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	OrderID          uint   `gorm:"not null;index" json:"order_id"`
	ProductVariantID uint   `gorm:"not null;index" json:"product_variant_id"`
	ProductName      string `gorm:"not null;size:255" json:"product_name"`
	SKU              string `gorm:"not null;size:100" json:"sku"`
	ColorName        string `gorm:"size:100" json:"color_name"`
	SizeName         string `gorm:"size:50" json:"size_name"`
	Quantity         int    `gorm:"not null" json:"quantity"`
	UnitPrice        int64  `gorm:"not null" json:"unit_price"`  // cents, tax-inclusive
	TotalPrice       int64  `gorm:"not null" json:"total_price"` // unit price * quantity
	TaxAmount        int64  `gorm:"default:0" json:"tax_amount"` // tax share contained in total
	CreatedAt        time.Time `json:"created_at"`
}

// TableName overrides the table name
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderAddress is a billing or shipping address frozen onto the order.
type OrderAddress struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	OrderID      uint        `gorm:"not null;index" json:"order_id"`
	Type         AddressType `gorm:"not null;size:20" json:"type"`
	FirstName    string      `gorm:"not null;size:100" json:"first_name"`
	LastName     string      `gorm:"not null;size:100" json:"last_name"`
	Company      string      `gorm:"size:100" json:"company,omitempty"`
	AddressLine1 string      `gorm:"not null;size:255" json:"address_line1"`
	AddressLine2 string      `gorm:"size:255" json:"address_line2,omitempty"`
	City         string      `gorm:"not null;size:100" json:"city"`
	PostalCode   string      `gorm:"not null;size:20" json:"postal_code"`
	Country      string      `gorm:"not null;size:2" json:"country"`
	Phone        string      `gorm:"size:30" json:"phone,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// TableName overrides the table name
func (OrderAddress) TableName() string {
	return "order_addresses"
}

// TransactionType distinguishes charges from refunds
type TransactionType string

const (
	TransactionTypePayment TransactionType = "payment"
	TransactionTypeRefund  TransactionType = "refund"
)

// PaymentTransaction records every gateway interaction for an order.
type PaymentTransaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	Type        TransactionType `gorm:"not null;size:20" json:"type"`
	Provider    string          `gorm:"not null;size:30" json:"provider"`
	ProviderRef string          `gorm:"size:255;index" json:"provider_ref"`
	Amount      int64           `gorm:"not null" json:"amount"`
	Currency    string          `gorm:"size:3" json:"currency"`
	Status      string          `gorm:"not null;size:30" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName overrides the table name
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// OrderStatusHistory is the audit trail of lifecycle transitions.
type OrderStatusHistory struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"size:30" json:"from_status"`
	ToStatus   OrderStatus `gorm:"not null;size:30" json:"to_status"`
	Comment    string      `gorm:"size:500" json:"comment,omitempty"`
	CreatedBy  *uint       `json:"created_by,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TableName overrides the table name
func (OrderStatusHistory) TableName() string {
	return "order_status_histories"
}
