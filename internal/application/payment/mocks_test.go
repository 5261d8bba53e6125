package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/google/uuid"
	billingapp "github.com/storefront/backend/internal/application/billing"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/idempotency"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"
)

// fakeVerifier accepts the signature "valid" and decodes the payload as a
// raw event object
type fakeVerifier struct{}

func (fakeVerifier) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if signature != "valid" {
		return stripe.Event{}, errors.New("no signatures found matching the expected signature")
	}
	var envelope struct {
		ID   string          `json:"id"`
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return stripe.Event{}, err
	}
	return stripe.Event{
		ID:   envelope.ID,
		Type: stripe.EventType(envelope.Type),
		Data: &stripe.EventData{Raw: envelope.Data},
	}, nil
}

type MockPaymentUpdater struct {
	mock.Mock
}

func (m *MockPaymentUpdater) MarkPaid(ctx context.Context, c orderapp.Capture) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockPaymentUpdater) MarkFailed(ctx context.Context, lookup orderapp.PaymentLookup, rawStatus, note string) error {
	return m.Called(ctx, lookup, rawStatus, note).Error(0)
}

func (m *MockPaymentUpdater) MarkRefunded(ctx context.Context, lookup orderapp.PaymentLookup, rawStatus string) error {
	return m.Called(ctx, lookup, rawStatus).Error(0)
}

type MockSubscriptionEvents struct {
	mock.Mock
}

func (m *MockSubscriptionEvents) Activate(ctx context.Context, storeID uuid.UUID, plan store.Plan, customerID, subscriptionID string) error {
	return m.Called(ctx, storeID, plan, customerID, subscriptionID).Error(0)
}

func (m *MockSubscriptionEvents) Sync(ctx context.Context, state billingapp.SubscriptionState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *MockSubscriptionEvents) Terminate(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

type MockStripeIntents struct {
	mock.Mock
}

func (m *MockStripeIntents) PaymentMetadata(ctx context.Context, paymentIntentID string) (map[string]string, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type MockSSLCommerzVerifier struct {
	mock.Mock
}

func (m *MockSSLCommerzVerifier) VerifySignature(form url.Values) bool {
	return m.Called(form).Bool(0)
}

func (m *MockSSLCommerzVerifier) ValidateTransaction(ctx context.Context, valID string) (*SSLCommerzValidation, error) {
	args := m.Called(ctx, valID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SSLCommerzValidation), args.Error(1)
}

func newGuard() *idempotency.Guard {
	return idempotency.NewGuard(cache.NewInMemoryIdempotencyStore(), zap.NewNop())
}
