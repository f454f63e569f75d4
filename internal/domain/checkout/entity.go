// internal/domain/checkout/entity.go
package checkout

import (
	"github.com/your-org/fashion-store-backend/internal/domain/order"
	"github.com/your-org/fashion-store-backend/internal/pkg/money"
)

// PaymentMethodStripe and PaymentMethodInvoice are the supported payment
// flows: stripe settles asynchronously via webhook, invoice is confirmed
// immediately and settled manually by accounting.
const (
	PaymentMethodStripe  = "stripe"
	PaymentMethodInvoice = "invoice"
)

// ShippingMethod represents a shipping option
type ShippingMethod struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Cost          int64  `json:"cost"` // cents
	FreeAbove     int64  `json:"free_above,omitempty"`
	EstimatedDays string `json:"estimated_days"`
}

// CostFor returns the effective cost for a given cart subtotal.
func (m *ShippingMethod) CostFor(subtotal int64) int64 {
	if m.FreeAbove > 0 && subtotal >= m.FreeAbove {
		return 0
	}
	return m.Cost
}

// Annotate fills the description with the free-shipping condition.
func (m *ShippingMethod) Annotate(currency string) {
	if m.FreeAbove > 0 {
		m.Description = "Free on orders over " + money.Format(m.FreeAbove, currency)
	}
}

// AddressInput is a postal address as submitted at checkout.
type AddressInput struct {
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	Company      string `json:"company"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	PostalCode   string `json:"postal_code" binding:"required"`
	Country      string `json:"country" binding:"required"`
	Phone        string `json:"phone"`
}

func (a *AddressInput) toOrderAddress(addrType order.AddressType) order.OrderAddress {
	return order.OrderAddress{
		Type:         addrType,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Company:      a.Company,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
	}
}

// PlaceOrderRequest is the checkout submission.
type PlaceOrderRequest struct {
	Email            string        `json:"email" binding:"required,email"`
	PaymentMethod    string        `json:"payment_method" binding:"required"`
	ShippingMethodID string        `json:"shipping_method_id" binding:"required"`
	BillingAddress   AddressInput  `json:"billing_address" binding:"required"`
	ShippingAddress  *AddressInput `json:"shipping_address,omitempty"` // defaults to billing
	Notes            string        `json:"notes"`
}

// PlaceOrderResult is returned to the client after submission.
type PlaceOrderResult struct {
	Order        *order.Order `json:"order"`
	ClientSecret string       `json:"client_secret,omitempty"` // stripe only
	RequiresPayment bool      `json:"requires_payment"`
}

// Summary previews the totals for the current cart before submission.
type Summary struct {
	Subtotal       int64            `json:"subtotal"`
	TaxAmount      int64            `json:"tax_amount"` // included in subtotal
	ShippingAmount int64            `json:"shipping_amount"`
	TotalAmount    int64            `json:"total_amount"`
	Currency       string           `json:"currency"`
	ItemCount      int              `json:"item_count"`
	ShippingMethod *ShippingMethod  `json:"shipping_method,omitempty"`
	Methods        []ShippingMethod `json:"available_methods,omitempty"`
}
