// internal/pkg/payment/gateway.go
package payment

import "context"

// Intent is the gateway-neutral view of a payment attempt.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Succeeded reports whether the intent settled.
func (i *Intent) Succeeded() bool {
	return i.Status == "succeeded"
}

// IntentRequest describes the charge to create.
type IntentRequest struct {
	Amount      int64
	Currency    string
	OrderNumber string
	Email       string
}

// Gateway abstracts the payment provider. Implementations perform network
// calls and must never be invoked while holding a database transaction or a
// stock row lock.
type Gateway interface {
	Provider() string
	CreateIntent(ctx context.Context, req *IntentRequest) (*Intent, error)
	Confirm(ctx context.Context, intentID string) (*Intent, error)
	Refund(ctx context.Context, intentID string, amount int64) error
}
