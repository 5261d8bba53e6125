package billing

import (
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for the Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string

	// WebhookSecret verifies webhook signatures (whsec_xxx)
	WebhookSecret string

	// SuccessURL and CancelURL may contain {ORDER_NUMBER}, {ORDER_ID} and
	// Stripe's own {CHECKOUT_SESSION_ID}
	SuccessURL string
	CancelURL  string

	// PriceIDs maps paid plans to Stripe recurring price ids
	PriceIDs map[store.Plan]string
}

// NewStripeConfig builds the adapter config from application settings.
// Relative redirect URLs are resolved against baseURL.
func NewStripeConfig(cfg config.StripeConfig, baseURL string) *StripeConfig {
	base := strings.TrimRight(baseURL, "/")
	resolve := func(u, fallback string) string {
		if u == "" {
			u = fallback
		}
		if strings.HasPrefix(u, "/") {
			return base + u
		}
		return u
	}
	return &StripeConfig{
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
		SuccessURL:    resolve(cfg.SuccessURL, "/checkout/success?order={ORDER_NUMBER}"),
		CancelURL:     resolve(cfg.CancelURL, "/checkout/cancel?order={ORDER_NUMBER}"),
		PriceIDs: map[store.Plan]string{
			store.PlanBasic: cfg.PriceBasic,
			store.PlanPro:   cfg.PricePro,
		},
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return fmt.Errorf("stripe: secret key must start with sk_ or rk_")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	return nil
}

// GetPriceID returns the Stripe price id for a paid plan
func (c *StripeConfig) GetPriceID(plan store.Plan) (string, error) {
	if plan == store.PlanFree {
		return "", fmt.Errorf("stripe: plan %s has no price", plan)
	}
	priceID := c.PriceIDs[plan]
	if priceID == "" {
		return "", fmt.Errorf("stripe: price ID not set for plan: %s", plan)
	}
	return priceID, nil
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
