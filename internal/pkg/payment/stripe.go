// internal/pkg/payment/stripe.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
)

// StripeGateway talks to the Stripe REST API with form-encoded requests.
type StripeGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewStripeGateway creates a Stripe gateway from configuration.
func NewStripeGateway(cfg *config.Config) *StripeGateway {
	return &StripeGateway{
		secretKey: cfg.External.Stripe.SecretKey,
		baseURL:   "https://api.stripe.com/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Provider returns the gateway name used in transaction rows.
func (g *StripeGateway) Provider() string {
	return "stripe"
}

// stripeIntent mirrors the fields we read from Stripe's payment_intent object.
type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (si *stripeIntent) toIntent() *Intent {
	return &Intent{
		ID:           si.ID,
		ClientSecret: si.ClientSecret,
		Status:       si.Status,
		Amount:       si.Amount,
		Currency:     strings.ToUpper(si.Currency),
	}
}

// CreateIntent creates a payment intent for the order total.
func (g *StripeGateway) CreateIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("metadata[order_number]", req.OrderNumber)
	if req.Email != "" {
		form.Set("receipt_email", req.Email)
	}

	var intent stripeIntent
	if err := g.call(ctx, http.MethodPost, "/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return intent.toIntent(), nil
}

// Confirm fetches the current state of a payment intent.
func (g *StripeGateway) Confirm(ctx context.Context, intentID string) (*Intent, error) {
	var intent stripeIntent
	if err := g.call(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(intentID), nil, &intent); err != nil {
		return nil, err
	}
	return intent.toIntent(), nil
}

// Refund issues a refund against a settled intent.
func (g *StripeGateway) Refund(ctx context.Context, intentID string, amount int64) error {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	if amount > 0 {
		form.Set("amount", strconv.FormatInt(amount, 10))
	}
	return g.call(ctx, http.MethodPost, "/refunds", form, &struct{}{})
}

func (g *StripeGateway) call(ctx context.Context, method, endpoint string, form url.Values, out interface{}) error {
	if g.secretKey == "" {
		return apperrors.Payment("stripe is not configured", nil)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build stripe request: %w", err)
	}
	req.SetBasicAuth(g.secretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperrors.Payment("stripe request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Payment("failed to read stripe response", err)
	}

	if resp.StatusCode >= 400 {
		return apperrors.Payment(fmt.Sprintf("stripe returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Payment("failed to decode stripe response", err)
	}
	return nil
}
