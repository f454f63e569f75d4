// internal/pkg/email/service.go
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/order"
	"github.com/your-org/fashion-store-backend/internal/pkg/money"
)

// EmailService sends transactional mail. All sends are fire-and-forget from
// the caller's perspective; failures are logged and never break checkout.
type EmailService struct {
	config *config.Config
	logger *logrus.Logger
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger *logrus.Logger) *EmailService {
	return &EmailService{
		config: cfg,
		logger: logger,
	}
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.External.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "log":
		s.logger.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("Email (log provider)")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.External.Email.Provider)
	}
}

// SendOrderConfirmation sends the post-checkout confirmation. Errors are
// swallowed after logging.
func (s *EmailService) SendOrderConfirmation(ctx context.Context, o *order.Order, to string) {
	if to == "" {
		return
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Thank you for your order %s.\n\n", o.OrderNumber)
	for _, item := range o.Items {
		fmt.Fprintf(&body, "  %dx %s (%s) - %s\n",
			item.Quantity, item.ProductName, item.SKU, money.Format(item.TotalPrice, o.Currency))
	}
	fmt.Fprintf(&body, "\nSubtotal: %s\n", money.Format(o.SubtotalAmount, o.Currency))
	fmt.Fprintf(&body, "Shipping: %s\n", money.Format(o.ShippingAmount, o.Currency))
	fmt.Fprintf(&body, "Included VAT: %s\n", money.Format(o.TaxAmount, o.Currency))
	fmt.Fprintf(&body, "Total: %s\n", money.Format(o.TotalAmount, o.Currency))

	email := &Email{
		To:          []string{to},
		Subject:     fmt.Sprintf("Order confirmation %s", o.OrderNumber),
		TextContent: body.String(),
		Type:        EmailTypeOrderConfirmation,
	}

	if err := s.SendEmail(ctx, email); err != nil {
		s.logger.WithError(err).WithField("order_number", o.OrderNumber).
			Warn("Failed to send order confirmation")
	}
}

// SendShippingUpdate notifies the customer that the order left the warehouse.
func (s *EmailService) SendShippingUpdate(ctx context.Context, o *order.Order, to string) {
	if to == "" {
		return
	}

	email := &Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Your order %s has shipped", o.OrderNumber),
		TextContent: fmt.Sprintf("Order %s is on its way. Tracking number: %s\n",
			o.OrderNumber, o.TrackingNumber),
		Type: EmailTypeShippingUpdate,
	}

	if err := s.SendEmail(ctx, email); err != nil {
		s.logger.WithError(err).WithField("order_number", o.OrderNumber).
			Warn("Failed to send shipping update")
	}
}
