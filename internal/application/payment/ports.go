package payment

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	billingapp "github.com/storefront/backend/internal/application/billing"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/stripe/stripe-go/v81"
)

// StripeEventVerifier checks the Stripe-Signature header and decodes the event
type StripeEventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// SSLCommerzValidation is the gateway's server-side view of a transaction
type SSLCommerzValidation struct {
	Status    string
	TranID    string
	ValID     string
	Amount    decimal.Decimal
	Currency  string
	RiskLevel string
}

// IsValid reports whether the gateway considers the transaction captured
func (v *SSLCommerzValidation) IsValid() bool {
	return v.Status == "VALID" || v.Status == "VALIDATED"
}

// SSLCommerzVerifier authenticates IPN posts
type SSLCommerzVerifier interface {
	VerifySignature(form url.Values) bool
	ValidateTransaction(ctx context.Context, valID string) (*SSLCommerzValidation, error)
}

// StripeIntents reads PaymentIntent metadata for events that only carry
// the intent id
type StripeIntents interface {
	PaymentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error)
}

// PaymentUpdater applies gateway outcomes to payments and orders
type PaymentUpdater interface {
	MarkPaid(ctx context.Context, c orderapp.Capture) error
	MarkFailed(ctx context.Context, lookup orderapp.PaymentLookup, rawStatus, note string) error
	MarkRefunded(ctx context.Context, lookup orderapp.PaymentLookup, rawStatus string) error
}

// SubscriptionEvents applies Stripe subscription lifecycle events to stores
type SubscriptionEvents interface {
	Activate(ctx context.Context, storeID uuid.UUID, plan store.Plan, customerID, subscriptionID string) error
	Sync(ctx context.Context, state billingapp.SubscriptionState) error
	Terminate(ctx context.Context, subscriptionID string) error
}
