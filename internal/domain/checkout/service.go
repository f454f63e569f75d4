// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/cart"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/domain/order"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"github.com/your-org/fashion-store-backend/internal/pkg/email"
	"github.com/your-org/fashion-store-backend/internal/pkg/money"
	"github.com/your-org/fashion-store-backend/internal/pkg/payment"
	"gorm.io/gorm"
)

// Service orchestrates checkout: it snapshots the cart, verifies
// availability, prices the order and hands the aggregate to the order
// service inside one transaction. Gateway calls always happen outside that
// transaction.
type Service struct {
	db           *gorm.DB
	config       *config.Config
	logger       *logrus.Logger
	cartService  *cart.Service
	inventory    *inventory.Service
	orderService *order.Service
	gateway      payment.Gateway
	emailService *email.EmailService
}

// NewService creates a new checkout service
func NewService(
	db *gorm.DB,
	cfg *config.Config,
	logger *logrus.Logger,
	cartService *cart.Service,
	inv *inventory.Service,
	orderService *order.Service,
	gateway payment.Gateway,
	emailService *email.EmailService,
) *Service {
	return &Service{
		db:           db,
		config:       cfg,
		logger:       logger,
		cartService:  cartService,
		inventory:    inv,
		orderService: orderService,
		gateway:      gateway,
		emailService: emailService,
	}
}

// ShippingMethods lists the available options annotated for the subtotal.
func (s *Service) ShippingMethods(subtotal int64) []ShippingMethod {
	methods := []ShippingMethod{
		{
			ID:            "standard",
			Name:          "Standard Shipping",
			Cost:          495,
			FreeAbove:     10000,
			EstimatedDays: "3-5",
		},
		{
			ID:            "express",
			Name:          "Express Shipping",
			Description:   "Next business day",
			Cost:          995,
			EstimatedDays: "1-2",
		},
	}
	for i := range methods {
		if methods[i].FreeAbove > 0 {
			methods[i].Annotate(s.config.Checkout.Currency)
			if subtotal >= methods[i].FreeAbove {
				methods[i].Cost = 0
			}
		}
	}
	return methods
}

func (s *Service) findShippingMethod(id string) (*ShippingMethod, error) {
	for _, m := range s.ShippingMethods(0) {
		if m.ID == id {
			method := m
			return &method, nil
		}
	}
	return nil, apperrors.Validation("unknown shipping method %q", id)
}

// GetSummary previews the totals for the current cart.
func (s *Service) GetSummary(ctx context.Context, id cart.Identity, shippingMethodID string) (*Summary, error) {
	view, err := s.cartService.GetCart(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Subtotal:  view.Subtotal,
		TaxAmount: money.ExtractTax(view.Subtotal, s.config.Checkout.TaxRate),
		Currency:  s.config.Checkout.Currency,
		ItemCount: view.ItemCount,
		Methods:   s.ShippingMethods(view.Subtotal),
	}

	if shippingMethodID != "" {
		method, err := s.findShippingMethod(shippingMethodID)
		if err != nil {
			return nil, err
		}
		summary.ShippingAmount = method.CostFor(view.Subtotal)
		summary.ShippingMethod = method
	}

	summary.TotalAmount = summary.Subtotal + summary.ShippingAmount
	return summary, nil
}

// PlaceOrder turns the current cart into a pending order. The whole aggregate
// is written in one transaction; if anything fails, nothing is kept. Stock is
// not decremented here; the pending order itself holds the reservation.
func (s *Service) PlaceOrder(ctx context.Context, id cart.Identity, req *PlaceOrderRequest) (*PlaceOrderResult, error) {
	if req.PaymentMethod != PaymentMethodStripe && req.PaymentMethod != PaymentMethodInvoice {
		return nil, apperrors.Validation("unsupported payment method %q", req.PaymentMethod)
	}

	method, err := s.findShippingMethod(req.ShippingMethodID)
	if err != nil {
		return nil, err
	}

	// snapshot the cart at submission; quantities and prices are re-read, a
	// stale browser tab cannot order at an old price
	lines, err := s.cartService.Store().List(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperrors.Validation("cart is empty")
	}

	items, issues, subtotal, err := s.buildItems(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, apperrors.Availability("some items are not available", issues...)
	}

	taxAmount := money.ExtractTax(subtotal, s.config.Checkout.TaxRate)
	shippingAmount := method.CostFor(subtotal)
	totalAmount := subtotal + shippingAmount

	newOrder := &order.Order{
		Status:         order.OrderStatusPending,
		PaymentStatus:  order.PaymentStatusPending,
		PaymentMethod:  req.PaymentMethod,
		SubtotalAmount: subtotal,
		TaxAmount:      taxAmount,
		ShippingAmount: shippingAmount,
		TotalAmount:    totalAmount,
		Currency:       s.config.Checkout.Currency,
		ShippingMethod: method.Name,
		Notes:          req.Notes,
		Items:          items,
		Addresses:      buildAddresses(req),
	}
	if id.IsUser() {
		newOrder.UserID = id.UserID
	} else {
		newOrder.GuestEmail = req.Email
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := s.orderService.Create(tx, newOrder); err != nil {
		tx.Rollback()
		return nil, err
	}

	// invoice orders are confirmed immediately; payment settles later via
	// the back office and only then does stock move
	if req.PaymentMethod == PaymentMethodInvoice {
		if err := s.confirmInvoiceOrder(tx, newOrder); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	result := &PlaceOrderResult{Order: newOrder}

	switch req.PaymentMethod {
	case PaymentMethodInvoice:
		if err := s.cartService.Clear(ctx, id); err != nil {
			s.logger.WithError(err).Warn("Failed to clear cart after checkout")
		}
		s.emailService.SendOrderConfirmation(ctx, newOrder, req.Email)

	case PaymentMethodStripe:
		// gateway call after commit, never inside the transaction
		intent, err := s.gateway.CreateIntent(ctx, &payment.IntentRequest{
			Amount:      newOrder.TotalAmount,
			Currency:    newOrder.Currency,
			OrderNumber: newOrder.OrderNumber,
			Email:       req.Email,
		})
		if err != nil {
			s.logger.WithError(err).WithField("order_number", newOrder.OrderNumber).
				Error("Failed to create payment intent")
			return nil, err
		}
		s.recordIntent(newOrder, intent)
		result.ClientSecret = intent.ClientSecret
		result.RequiresPayment = true
	}

	s.logger.WithFields(logrus.Fields{
		"order_number":   newOrder.OrderNumber,
		"payment_method": req.PaymentMethod,
		"total":          newOrder.TotalAmount,
	}).Info("Order placed")

	return result, nil
}

// ConfirmPayment completes the stripe flow, normally from the webhook. It is
// safe to call repeatedly: settlement is idempotent.
func (s *Service) ConfirmPayment(ctx context.Context, orderID uint, intentID string) error {
	intent, err := s.gateway.Confirm(ctx, intentID)
	if err != nil {
		return err
	}

	ord, err := s.orderService.GetOrder(orderID)
	if err != nil {
		return err
	}

	if !intent.Succeeded() {
		if err := s.orderService.MarkPaymentFailed(orderID, s.gateway.Provider(), intentID, intent.Status); err != nil {
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeState {
				return err
			}
		}
		return apperrors.Payment(fmt.Sprintf("payment not settled: %s", intent.Status), nil)
	}

	if err := s.orderService.MarkPaid(orderID, s.gateway.Provider(), intentID, nil); err != nil {
		return err
	}

	if ord.UserID != nil {
		if err := s.cartService.Clear(ctx, cart.Identity{UserID: ord.UserID}); err != nil {
			s.logger.WithError(err).Warn("Failed to clear cart after payment")
		}
	}

	s.emailService.SendOrderConfirmation(ctx, ord, s.recipientFor(ord))
	return nil
}

// buildItems snapshots cart lines into order items at live prices, collecting
// availability issues instead of failing on the first one.
func (s *Service) buildItems(ctx context.Context, lines []cart.Line) ([]order.OrderItem, []apperrors.LineIssue, int64, error) {
	var items []order.OrderItem
	var issues []apperrors.LineIssue
	var subtotal int64

	for _, line := range lines {
		check, err := s.inventory.CheckAvailability(line.VariantID, line.Quantity)
		if err != nil {
			return nil, nil, 0, err
		}
		if !check.OK {
			issues = append(issues, apperrors.LineIssue{
				VariantID: check.VariantID,
				SKU:       check.SKU,
				Requested: check.Requested,
				Available: check.Available,
				Reason:    check.Reason,
			})
			continue
		}

		var variant catalog.ProductVariant
		if err := s.db.WithContext(ctx).
			Preload("Product").
			Preload("Color").
			Preload("Size").
			First(&variant, line.VariantID).Error; err != nil {
			return nil, nil, 0, err
		}

		unitPrice := variant.Product.CurrentPrice()
		lineTotal := unitPrice * int64(line.Quantity)
		item := order.OrderItem{
			ProductVariantID: variant.ID,
			ProductName:      variant.Product.Name,
			SKU:              variant.SKU,
			Quantity:         line.Quantity,
			UnitPrice:        unitPrice,
			TotalPrice:       lineTotal,
			TaxAmount:        money.ExtractTax(lineTotal, s.config.Checkout.TaxRate),
		}
		if variant.Color != nil {
			item.ColorName = variant.Color.Name
		}
		if variant.Size != nil {
			item.SizeName = variant.Size.Name
		}

		items = append(items, item)
		subtotal += lineTotal
	}

	return items, issues, subtotal, nil
}

func (s *Service) confirmInvoiceOrder(tx *gorm.DB, o *order.Order) error {
	if err := tx.Model(&order.Order{}).Where("id = ?", o.ID).
		Update("status", order.OrderStatusProcessing).Error; err != nil {
		return fmt.Errorf("failed to confirm invoice order: %w", err)
	}
	o.Status = order.OrderStatusProcessing

	history := order.OrderStatusHistory{
		OrderID:    o.ID,
		FromStatus: order.OrderStatusPending,
		ToStatus:   order.OrderStatusProcessing,
		Comment:    "confirmed on invoice",
	}
	return tx.Create(&history).Error
}

// recordIntent keeps the created intent as a pending transaction row so the
// webhook can correlate it later. Failure here is not fatal.
func (s *Service) recordIntent(o *order.Order, intent *payment.Intent) {
	txn := order.PaymentTransaction{
		OrderID:     o.ID,
		Type:        order.TransactionTypePayment,
		Provider:    s.gateway.Provider(),
		ProviderRef: intent.ID,
		Amount:      intent.Amount,
		Currency:    o.Currency,
		Status:      "created",
	}
	if err := s.db.Create(&txn).Error; err != nil {
		s.logger.WithError(err).WithField("order_number", o.OrderNumber).
			Warn("Failed to record payment intent")
	}
}

func (s *Service) recipientFor(o *order.Order) string {
	if o.GuestEmail != "" {
		return o.GuestEmail
	}
	var emailAddr string
	if o.UserID != nil {
		s.db.Table("users").Where("id = ?", *o.UserID).Pluck("email", &emailAddr)
	}
	return emailAddr
}

func buildAddresses(req *PlaceOrderRequest) []order.OrderAddress {
	billing := req.BillingAddress.toOrderAddress(order.AddressTypeBilling)

	shippingInput := req.ShippingAddress
	if shippingInput == nil {
		shippingInput = &req.BillingAddress
	}
	shipping := shippingInput.toOrderAddress(order.AddressTypeShipping)

	return []order.OrderAddress{billing, shipping}
}
