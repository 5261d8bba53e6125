package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByStore(ctx context.Context, storeID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStoreRepository) FindBySlug(ctx context.Context, slug string) (*store.Store, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStoreRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]store.Store, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]store.Store), args.Error(1)
}

func (m *MockStoreRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoreRepository) Save(ctx context.Context, s *store.Store) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStoreRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockStripeBilling struct {
	mock.Mock
}

func (m *MockStripeBilling) CreateSubscriptionCheckout(ctx context.Context, in SubscriptionCheckoutInput) (*CheckoutSession, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

func (m *MockStripeBilling) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscriptionState), args.Error(1)
}

type inlineTx struct{}

func (inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type subscriptionFixture struct {
	svc    *SubscriptionService
	subs   *MockSubscriptionRepository
	stores *MockStoreRepository
	stripe *MockStripeBilling
	store  *store.Store
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	st, err := store.NewStore("Corner Shop", "", "USD")
	require.NoError(t, err)
	f := &subscriptionFixture{
		subs:   new(MockSubscriptionRepository),
		stores: new(MockStoreRepository),
		stripe: new(MockStripeBilling),
		store:  st,
	}
	f.svc = NewSubscriptionService(f.subs, f.stores, f.stripe, inlineTx{}, zap.NewNop())
	return f
}

func TestSubscriptionService_CreateCheckout_New(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.stores.On("FindByID", ctx, f.store.ID).Return(f.store, nil)
	f.subs.On("FindByStore", ctx, f.store.ID).Return(nil, shared.ErrNotFound)
	f.stripe.On("CreateSubscriptionCheckout", ctx, SubscriptionCheckoutInput{
		StoreID:       f.store.ID,
		Plan:          store.PlanPro,
		CustomerEmail: "owner@example.com",
	}).Return(&CheckoutSession{ID: "cs_sub", URL: "https://checkout.stripe.com/cs_sub"}, nil)
	f.subs.On("Save", ctx, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.Plan == store.PlanPro && s.Status == billing.SubscriptionIncomplete
	})).Return(nil)

	resp, err := f.svc.CreateCheckout(ctx, f.store.ID, CreateCheckoutRequest{Plan: "PRO"}, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cs_sub", resp.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/cs_sub", resp.URL)
	f.subs.AssertExpectations(t)
}

func TestSubscriptionService_CreateCheckout_AlreadyActive(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	sub, _ := billing.NewSubscription(f.store.ID, store.PlanBasic)
	sub.Activate(store.PlanBasic, "cus_1", "sub_1")
	f.stores.On("FindByID", ctx, f.store.ID).Return(f.store, nil)
	f.subs.On("FindByStore", ctx, f.store.ID).Return(sub, nil)

	_, err := f.svc.CreateCheckout(ctx, f.store.ID, CreateCheckoutRequest{Plan: "PRO"}, "")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_SUBSCRIBED", domainErr.Code)
	f.stripe.AssertNotCalled(t, "CreateSubscriptionCheckout", mock.Anything, mock.Anything)
}

func TestSubscriptionService_CreateCheckout_StripeFailure(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.stores.On("FindByID", ctx, f.store.ID).Return(f.store, nil)
	f.subs.On("FindByStore", ctx, f.store.ID).Return(nil, shared.ErrNotFound)
	f.stripe.On("CreateSubscriptionCheckout", ctx, mock.Anything).Return(nil, errors.New("stripe down"))

	_, err := f.svc.CreateCheckout(ctx, f.store.ID, CreateCheckoutRequest{Plan: "BASIC"}, "")
	assert.Error(t, err)
	f.subs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubscriptionService_CreateCheckout_Disabled(t *testing.T) {
	svc := NewSubscriptionService(nil, nil, nil, inlineTx{}, zap.NewNop())
	_, err := svc.CreateCheckout(context.Background(), uuid.New(), CreateCheckoutRequest{Plan: "PRO"}, "")
	assert.ErrorIs(t, err, errBillingDisabled)
}

func TestSubscriptionService_Get_NeverSubscribed(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.subs.On("FindByStore", ctx, f.store.ID).Return(nil, shared.ErrNotFound)
	f.stores.On("FindByID", ctx, f.store.ID).Return(f.store, nil)

	resp, err := f.svc.Get(ctx, f.store.ID)
	require.NoError(t, err)
	assert.Equal(t, "FREE", resp.Plan)
	assert.Equal(t, StatusNone, resp.Status)
}

func TestSubscriptionService_Cancel(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	sub, _ := billing.NewSubscription(f.store.ID, store.PlanBasic)
	sub.Activate(store.PlanBasic, "cus_1", "sub_1")
	periodEnd := time.Date(2026, 11, 16, 0, 0, 0, 0, time.UTC)
	f.subs.On("FindByStore", ctx, f.store.ID).Return(sub, nil)
	f.stripe.On("CancelAtPeriodEnd", ctx, "sub_1").Return(&SubscriptionState{
		SubscriptionID:    "sub_1",
		Status:            "active",
		CurrentPeriodEnd:  &periodEnd,
		CancelAtPeriodEnd: true,
	}, nil)
	f.subs.On("Save", ctx, sub).Return(nil)

	resp, err := f.svc.Cancel(ctx, f.store.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.True(t, resp.CancelAtPeriodEnd)
	assert.Equal(t, &periodEnd, resp.CurrentPeriodEnd)
}

func TestSubscriptionService_Cancel_NotActive(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	sub, _ := billing.NewSubscription(f.store.ID, store.PlanBasic)
	f.subs.On("FindByStore", ctx, f.store.ID).Return(sub, nil)

	_, err := f.svc.Cancel(ctx, f.store.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSubscriptionService_Activate(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	f.stores.On("FindByID", ctx, f.store.ID).Return(f.store, nil)
	f.subs.On("FindByStore", ctx, f.store.ID).Return(nil, shared.ErrNotFound)
	f.subs.On("Save", ctx, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.Status == billing.SubscriptionActive && s.StripeSubscriptionID == "sub_9" && s.StripeCustomerID == "cus_9"
	})).Return(nil)
	f.stores.On("Save", ctx, f.store).Return(nil)

	require.NoError(t, f.svc.Activate(ctx, f.store.ID, store.PlanPro, "cus_9", "sub_9"))
	assert.Equal(t, store.PlanPro, f.store.Plan)
	assert.Equal(t, "cus_9", f.store.StripeCustomerID)
}

func TestSubscriptionService_Activate_UnknownStore(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	id := uuid.New()
	f.stores.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

	assert.NoError(t, f.svc.Activate(ctx, id, store.PlanPro, "cus_9", "sub_9"))
	f.subs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubscriptionService_Sync(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	sub, _ := billing.NewSubscription(f.store.ID, store.PlanBasic)
	sub.Activate(store.PlanBasic, "cus_1", "sub_1")
	f.subs.On("FindByStripeSubscriptionID", ctx, "sub_1").Return(sub, nil)
	f.subs.On("Save", ctx, sub).Return(nil)

	require.NoError(t, f.svc.Sync(ctx, SubscriptionState{SubscriptionID: "sub_1", Status: "past_due"}))
	assert.Equal(t, billing.SubscriptionPastDue, sub.Status)

	f.subs.On("FindByStripeSubscriptionID", ctx, "sub_unknown").Return(nil, shared.ErrNotFound)
	assert.NoError(t, f.svc.Sync(ctx, SubscriptionState{SubscriptionID: "sub_unknown", Status: "active"}))
}

func TestSubscriptionService_Terminate(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.ChangePlan(store.PlanPro))
	sub, _ := billing.NewSubscription(f.store.ID, store.PlanPro)
	sub.Activate(store.PlanPro, "cus_1", "sub_1")
	f.subs.On("FindByStripeSubscriptionID", ctx, "sub_1").Return(sub, nil)
	f.subs.On("Save", ctx, sub).Return(nil)
	f.stores.On("FindByID", ctx, f.store.ID).Return(f.store, nil)
	f.stores.On("Save", ctx, f.store).Return(nil)

	require.NoError(t, f.svc.Terminate(ctx, "sub_1"))
	assert.Equal(t, billing.SubscriptionCanceled, sub.Status)
	assert.Equal(t, store.PlanFree, sub.Plan)
	assert.Equal(t, store.PlanFree, f.store.Plan)
}
