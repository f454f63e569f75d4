// internal/pkg/email/types.go
package email

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
	EmailTypeShippingUpdate    EmailType = "shipping_update"
	EmailTypeBackInStock       EmailType = "back_in_stock"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	TextContent string    `json:"text_content"`
	Type        EmailType `json:"type"`
}
