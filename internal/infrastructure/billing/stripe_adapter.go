package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storefront/backend/internal/application/billing"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/subscription"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

var (
	_ orderapp.PaymentGateway = (*StripeAdapter)(nil)
	_ billing.StripeBilling   = (*StripeAdapter)(nil)
)

// StripeAdapter opens Stripe Checkout sessions for orders and plan
// subscriptions, and verifies webhook payloads
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger.Named("stripe"),
	}, nil
}

// Provider identifies the gateway on payments
func (a *StripeAdapter) Provider() order.Provider {
	return order.ProviderStripe
}

// CreateSession opens a one-off payment Checkout session for the order
// total. The session id becomes the payment's provider reference.
func (a *StripeAdapter) CreateSession(ctx context.Context, o *order.Order, p *order.Payment) (string, string, error) {
	metadata := map[string]string{
		MetadataStoreID:   o.StoreID.String(),
		MetadataOrderID:   o.ID.String(),
		MetadataPaymentID: p.ID.String(),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(a.redirectURL(a.config.SuccessURL, o)),
		CancelURL:         stripe.String(a.redirectURL(a.config.CancelURL, o)),
		ClientReferenceID: stripe.String(o.ID.String()),
		CustomerEmail:     stripe.String(o.CustomerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(p.Currency)),
					UnitAmount: stripe.Int64(ToMinorUnits(p.Amount, p.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + o.OrderNumber),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
		Metadata: metadata,
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + p.ID.String())

	sess, err := session.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe checkout session",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		return "", "", fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	a.logger.Info("Created Stripe checkout session",
		zap.String("order_id", o.ID.String()),
		zap.String("session_id", sess.ID))

	return sess.URL, sess.ID, nil
}

// CreateSubscriptionCheckout opens a subscription-mode Checkout session
// for a store plan
func (a *StripeAdapter) CreateSubscriptionCheckout(ctx context.Context, in billing.SubscriptionCheckoutInput) (*billing.CheckoutSession, error) {
	priceID, err := a.config.GetPriceID(in.Plan)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		MetadataStoreID: in.StoreID.String(),
		MetadataPlan:    string(in.Plan),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(a.config.SuccessURL),
		CancelURL:         stripe.String(a.config.CancelURL),
		ClientReferenceID: stripe.String(in.StoreID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
		Metadata: metadata,
	}
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	} else if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe subscription checkout",
			zap.String("store_id", in.StoreID.String()),
			zap.String("plan", string(in.Plan)),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create subscription checkout: %w", err)
	}

	return &billing.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CancelAtPeriodEnd schedules the subscription to end with the current period
func (a *StripeAdapter) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*billing.SubscriptionState, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		a.logger.Error("Failed to cancel Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to cancel subscription: %w", err)
	}

	a.logger.Info("Scheduled Stripe subscription cancellation",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))

	return SubscriptionStateFrom(sub), nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
// Events rendered with an older API version are accepted; handlers read
// only fields that are stable across versions.
func (a *StripeAdapter) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, a.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}

// PaymentMetadata fetches a PaymentIntent and returns the metadata set on
// it at checkout. Charges do not always carry it.
func (a *StripeAdapter) PaymentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		a.logger.Error("Failed to fetch Stripe payment intent",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to fetch payment intent: %w", err)
	}
	return pi.Metadata, nil
}

// SubscriptionStateFrom converts a Stripe subscription
func SubscriptionStateFrom(sub *stripe.Subscription) *billing.SubscriptionState {
	state := &billing.SubscriptionState{
		SubscriptionID:    sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		state.CurrentPeriodEnd = &t
	}
	return state
}

func (a *StripeAdapter) redirectURL(tmpl string, o *order.Order) string {
	return strings.NewReplacer(
		"{ORDER_NUMBER}", o.OrderNumber,
		"{ORDER_ID}", o.ID.String(),
	).Replace(tmpl)
}
