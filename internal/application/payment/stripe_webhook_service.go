// Package payment turns gateway notifications into payment and
// subscription updates.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	stripebilling "github.com/storefront/backend/internal/infrastructure/billing"
	"github.com/storefront/backend/internal/infrastructure/idempotency"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"
)

// Idempotency scopes for Stripe events
const (
	SourceStripe = "stripe"
	EntityEvent  = "event"
)

// ErrInvalidSignature is returned when a webhook cannot be authenticated
var ErrInvalidSignature = shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature verification failed")

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message,omitempty"`
}

// StripeWebhookService handles Stripe webhook events
type StripeWebhookService struct {
	verifier      StripeEventVerifier
	intents       StripeIntents
	payments      PaymentUpdater
	subscriptions SubscriptionEvents
	guard         *idempotency.Guard
	logger        *zap.Logger
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	Verifier      StripeEventVerifier
	Intents       StripeIntents
	Payments      PaymentUpdater
	Subscriptions SubscriptionEvents
	Guard         *idempotency.Guard
	Logger        *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	return &StripeWebhookService{
		verifier:      cfg.Verifier,
		intents:       cfg.Intents,
		payments:      cfg.Payments,
		subscriptions: cfg.Subscriptions,
		guard:         cfg.Guard,
		logger:        cfg.Logger,
	}
}

// ProcessWebhook verifies and processes a Stripe webhook event. Each event
// id is handled at most once.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if signature == "" {
		return nil, ErrInvalidSignature
	}
	event, err := s.verifier.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.Warn("Failed to verify webhook signature", zap.Error(err))
		return nil, ErrInvalidSignature
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
	}
	duplicate, err := s.guard.Run(ctx, SourceStripe, EntityEvent, event.ID, func(ctx context.Context) error {
		return s.dispatch(ctx, event, result)
	})
	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}
	if duplicate {
		result.Duplicate = true
		result.Message = "Event already processed"
	}
	return result, nil
}

func (s *StripeWebhookService) dispatch(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var err error
	result.Processed = true

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		err = s.handleSessionCompleted(ctx, event, result)
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		err = s.handleSessionFailed(ctx, event, result)
	case "payment_intent.payment_failed":
		err = s.handlePaymentFailed(ctx, event, result)
	case "charge.refunded":
		err = s.handleChargeRefunded(ctx, event, result)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Processed = false
		result.Message = "Event type not handled"
	}

	if isNotFound(err) {
		// not one of ours; acknowledge so Stripe stops retrying
		s.logger.Warn("Webhook references an unknown payment",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		result.Processed = false
		result.Message = "Payment not found"
		return nil
	}
	return err
}

// handleSessionCompleted handles checkout.session.completed events for both
// order payments and plan subscriptions
func (s *StripeWebhookService) handleSessionCompleted(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	if sess.Mode == stripe.CheckoutSessionModeSubscription {
		return s.activateSubscription(ctx, &sess, result)
	}

	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		// delayed payment methods settle with async_payment_succeeded
		s.logger.Info("Checkout session completed without payment",
			zap.String("session_id", sess.ID))
		result.Processed = false
		result.Message = "Awaiting payment"
		return nil
	}

	currency := string(sess.Currency)
	return s.payments.MarkPaid(ctx, orderapp.Capture{
		PaymentLookup: orderapp.PaymentLookup{Provider: order.ProviderStripe, Ref: sess.ID},
		Amount:        stripebilling.FromMinorUnits(sess.AmountTotal, currency),
		Currency:      currency,
		RawStatus:     string(sess.PaymentStatus),
	})
}

func (s *StripeWebhookService) activateSubscription(ctx context.Context, sess *stripe.CheckoutSession, result *WebhookResult) error {
	storeID, err := uuid.Parse(sess.Metadata[stripebilling.MetadataStoreID])
	if err != nil {
		storeID, err = uuid.Parse(sess.ClientReferenceID)
	}
	if err != nil {
		s.logger.Warn("Subscription session has no store reference, skipping",
			zap.String("session_id", sess.ID))
		result.Processed = false
		result.Message = "Missing store reference"
		return nil
	}
	plan := store.Plan(sess.Metadata[stripebilling.MetadataPlan])
	if !plan.IsValid() {
		return fmt.Errorf("subscription session %s has unknown plan %q", sess.ID, plan)
	}

	customerID := ""
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	subscriptionID := ""
	if sess.Subscription != nil {
		subscriptionID = sess.Subscription.ID
	}
	return s.subscriptions.Activate(ctx, storeID, plan, customerID, subscriptionID)
}

// handleSessionFailed handles expired or failed checkout sessions
func (s *StripeWebhookService) handleSessionFailed(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	if sess.Mode == stripe.CheckoutSessionModeSubscription {
		result.Processed = false
		result.Message = "Subscription session ignored"
		return nil
	}

	raw, note := "expired", "Checkout session expired"
	if event.Type == "checkout.session.async_payment_failed" {
		raw, note = "async_payment_failed", "Delayed payment failed"
	}
	return s.payments.MarkFailed(ctx, orderapp.PaymentLookup{Provider: order.ProviderStripe, Ref: sess.ID}, raw, note)
}

// handlePaymentFailed handles payment_intent.payment_failed events. The
// intent carries the payment id in its metadata.
func (s *StripeWebhookService) handlePaymentFailed(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	paymentID, ok := paymentIDFrom(pi.Metadata)
	if !ok {
		result.Processed = false
		result.Message = "Payment intent has no payment reference"
		return nil
	}

	note := "Payment failed"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		note = pi.LastPaymentError.Msg
	}
	return s.payments.MarkFailed(ctx, orderapp.PaymentLookup{Provider: order.ProviderStripe, PaymentID: paymentID}, string(pi.Status), note)
}

// handleChargeRefunded handles charge.refunded events. Partial refunds are
// left to staff.
func (s *StripeWebhookService) handleChargeRefunded(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("failed to unmarshal charge: %w", err)
	}
	if !charge.Refunded {
		s.logger.Info("Partial refund ignored",
			zap.String("charge_id", charge.ID),
			zap.Int64("amount_refunded", charge.AmountRefunded))
		result.Processed = false
		result.Message = "Partial refund"
		return nil
	}

	paymentID, ok := paymentIDFrom(charge.Metadata)
	if !ok && charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
		metadata, err := s.intents.PaymentMetadata(ctx, charge.PaymentIntent.ID)
		if err != nil {
			return err
		}
		paymentID, ok = paymentIDFrom(metadata)
	}
	if !ok {
		result.Processed = false
		result.Message = "Charge has no payment reference"
		return nil
	}
	return s.payments.MarkRefunded(ctx, orderapp.PaymentLookup{Provider: order.ProviderStripe, PaymentID: paymentID}, "refunded")
}

// handleSubscriptionUpdated handles customer.subscription.updated events
func (s *StripeWebhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	s.logger.Info("Handling subscription updated",
		zap.String("subscription_id", subscription.ID),
		zap.String("status", string(subscription.Status)))

	return s.subscriptions.Sync(ctx, *stripebilling.SubscriptionStateFrom(&subscription))
}

// handleSubscriptionDeleted handles customer.subscription.deleted events
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	s.logger.Info("Handling subscription deleted",
		zap.String("subscription_id", subscription.ID))

	return s.subscriptions.Terminate(ctx, subscription.ID)
}

func paymentIDFrom(metadata map[string]string) (uuid.UUID, bool) {
	id, err := uuid.Parse(metadata[stripebilling.MetadataPaymentID])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
