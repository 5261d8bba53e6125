package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/store"
)

// CheckoutSession is a provider-hosted checkout page
type CheckoutSession struct {
	ID  string
	URL string
}

// SubscriptionCheckoutInput describes a plan purchase for a store
type SubscriptionCheckoutInput struct {
	StoreID       uuid.UUID
	Plan          store.Plan
	CustomerID    string
	CustomerEmail string
}

// SubscriptionState is the provider's view of a subscription
type SubscriptionState struct {
	SubscriptionID    string
	Status            string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// StripeBilling is the subset of Stripe the subscription service needs
type StripeBilling interface {
	CreateSubscriptionCheckout(ctx context.Context, in SubscriptionCheckoutInput) (*CheckoutSession, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*SubscriptionState, error)
}
