// Package billing sells platform plans to stores through Stripe.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"go.uber.org/zap"
)

// SubscriptionService manages a store's plan subscription
type SubscriptionService struct {
	subRepo   billing.SubscriptionRepository
	storeRepo store.Repository
	stripe    StripeBilling
	tx        shared.TxManager
	logger    *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService. stripe may be
// nil when billing is not configured; checkout and cancel then fail.
func NewSubscriptionService(subRepo billing.SubscriptionRepository, storeRepo store.Repository, stripe StripeBilling, tx shared.TxManager, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		subRepo:   subRepo,
		storeRepo: storeRepo,
		stripe:    stripe,
		tx:        tx,
		logger:    logger,
	}
}

var errBillingDisabled = shared.NewDomainError("BILLING_DISABLED", "Billing is not configured")

// CreateCheckout opens a Stripe Checkout page for a paid plan
func (s *SubscriptionService) CreateCheckout(ctx context.Context, storeID uuid.UUID, req CreateCheckoutRequest, email string) (*CheckoutResponse, error) {
	if s.stripe == nil {
		return nil, errBillingDisabled
	}
	plan := store.Plan(req.Plan)
	st, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.FindByStore(ctx, storeID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		sub, err = billing.NewSubscription(storeID, plan)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case sub.IsActive():
		return nil, shared.NewDomainError("ALREADY_SUBSCRIBED", "Store already has an active subscription")
	default:
		sub.Plan = plan
		sub.Status = billing.SubscriptionIncomplete
	}

	customerID := st.StripeCustomerID
	if customerID == "" {
		customerID = sub.StripeCustomerID
	}
	if email == "" {
		email = st.SupportEmail
	}
	session, err := s.stripe.CreateSubscriptionCheckout(ctx, SubscriptionCheckoutInput{
		StoreID:       storeID,
		Plan:          plan,
		CustomerID:    customerID,
		CustomerEmail: email,
	})
	if err != nil {
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription checkout created",
		zap.String("store_id", storeID.String()),
		zap.String("plan", string(plan)),
		zap.String("session_id", session.ID))
	return &CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

// Get returns the store's subscription. Stores that never subscribed
// report their plan with status NONE.
func (s *SubscriptionService) Get(ctx context.Context, storeID uuid.UUID) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByStore(ctx, storeID)
	if err == nil {
		return toSubscriptionResponse(sub), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	st, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionResponse{Plan: string(st.Plan), Status: StatusNone}, nil
}

// Cancel schedules the subscription to end with the current period
func (s *SubscriptionService) Cancel(ctx context.Context, storeID uuid.UUID) (*SubscriptionResponse, error) {
	if s.stripe == nil {
		return nil, errBillingDisabled
	}
	sub, err := s.subRepo.FindByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if err := sub.RequestCancel(); err != nil {
		return nil, err
	}
	state, err := s.stripe.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	sub.Sync(billing.StatusFromStripe(state.Status), state.CurrentPeriodEnd, state.CancelAtPeriodEnd)
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return toSubscriptionResponse(sub), nil
}

// Activate applies a completed subscription checkout: the store moves to
// the plan and is linked to its Stripe customer.
func (s *SubscriptionService) Activate(ctx context.Context, storeID uuid.UUID, plan store.Plan, customerID, subscriptionID string) error {
	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		st, err := s.storeRepo.FindByID(txCtx, storeID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				s.logger.Warn("Store not found for subscription checkout",
					zap.String("store_id", storeID.String()),
					zap.String("subscription_id", subscriptionID))
				return nil
			}
			return fmt.Errorf("failed to find store: %w", err)
		}

		sub, err := s.subRepo.FindByStore(txCtx, storeID)
		if errors.Is(err, shared.ErrNotFound) {
			sub, err = billing.NewSubscription(storeID, plan)
		}
		if err != nil {
			return err
		}
		sub.Activate(plan, customerID, subscriptionID)
		if err := s.subRepo.Save(txCtx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}

		if err := st.ChangePlan(plan); err != nil {
			return err
		}
		if customerID != "" {
			st.SetStripeCustomer(customerID)
		}
		if err := s.storeRepo.Save(txCtx, st); err != nil {
			return fmt.Errorf("failed to save store: %w", err)
		}

		s.logger.Info("Subscription activated",
			zap.String("store_id", storeID.String()),
			zap.String("plan", string(plan)),
			zap.String("subscription_id", subscriptionID))
		return nil
	})
}

// Sync applies a customer.subscription.updated notification
func (s *SubscriptionService) Sync(ctx context.Context, state SubscriptionState) error {
	sub, err := s.subRepo.FindByStripeSubscriptionID(ctx, state.SubscriptionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// checkout completion may not have arrived yet
			s.logger.Warn("Subscription not found",
				zap.String("subscription_id", state.SubscriptionID))
			return nil
		}
		return err
	}
	sub.Sync(billing.StatusFromStripe(state.Status), state.CurrentPeriodEnd, state.CancelAtPeriodEnd)
	if sub.Status == billing.SubscriptionPastDue {
		s.logger.Warn("Subscription payment issue",
			zap.String("store_id", sub.StoreID.String()),
			zap.String("status", state.Status))
	}
	return s.subRepo.Save(ctx, sub)
}

// Terminate applies customer.subscription.deleted: the store drops to FREE
func (s *SubscriptionService) Terminate(ctx context.Context, subscriptionID string) error {
	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		sub, err := s.subRepo.FindByStripeSubscriptionID(txCtx, subscriptionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				s.logger.Warn("Subscription not found",
					zap.String("subscription_id", subscriptionID))
				return nil
			}
			return err
		}
		sub.Terminate()
		if err := s.subRepo.Save(txCtx, sub); err != nil {
			return err
		}

		st, err := s.storeRepo.FindByID(txCtx, sub.StoreID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := st.ChangePlan(store.PlanFree); err != nil {
			return err
		}
		if err := s.storeRepo.Save(txCtx, st); err != nil {
			return err
		}
		s.logger.Info("Subscription terminated",
			zap.String("store_id", sub.StoreID.String()),
			zap.String("subscription_id", subscriptionID))
		return nil
	})
}
