// Package billing models a store's platform subscription, billed through Stripe.
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
)

// SubscriptionStatus mirrors the Stripe subscription lifecycle
type SubscriptionStatus string

const (
	SubscriptionIncomplete SubscriptionStatus = "INCOMPLETE"
	SubscriptionActive     SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue    SubscriptionStatus = "PAST_DUE"
	SubscriptionCanceled   SubscriptionStatus = "CANCELED"
)

// StatusFromStripe maps a Stripe subscription status to ours
func StatusFromStripe(s string) SubscriptionStatus {
	switch s {
	case "active", "trialing":
		return SubscriptionActive
	case "past_due", "unpaid":
		return SubscriptionPastDue
	case "canceled", "incomplete_expired":
		return SubscriptionCanceled
	default:
		return SubscriptionIncomplete
	}
}

// Subscription is a store's plan subscription. One per store.
type Subscription struct {
	shared.BaseEntity
	StoreID              uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex"`
	Plan                 store.Plan         `gorm:"type:varchar(20);not null"`
	Status               SubscriptionStatus `gorm:"type:varchar(20);not null"`
	StripeCustomerID     string             `gorm:"type:varchar(100)"`
	StripeSubscriptionID string             `gorm:"type:varchar(100);index"`
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// NewSubscription creates an incomplete subscription awaiting checkout
func NewSubscription(storeID uuid.UUID, plan store.Plan) (*Subscription, error) {
	if !plan.IsValid() || plan == store.PlanFree {
		return nil, shared.NewDomainError("INVALID_PLAN", "A paid plan is required")
	}
	return &Subscription{
		BaseEntity: shared.NewBaseEntity(),
		StoreID:    storeID,
		Plan:       plan,
		Status:     SubscriptionIncomplete,
	}, nil
}

// Activate records a completed checkout
func (s *Subscription) Activate(plan store.Plan, customerID, subscriptionID string) {
	s.Plan = plan
	s.Status = SubscriptionActive
	s.StripeCustomerID = customerID
	s.StripeSubscriptionID = subscriptionID
	s.CancelAtPeriodEnd = false
	s.Touch()
}

// Sync applies the state reported by Stripe
func (s *Subscription) Sync(status SubscriptionStatus, periodEnd *time.Time, cancelAtPeriodEnd bool) {
	s.Status = status
	s.CurrentPeriodEnd = periodEnd
	s.CancelAtPeriodEnd = cancelAtPeriodEnd
	s.Touch()
}

// Terminate downgrades the subscription after Stripe deletes it
func (s *Subscription) Terminate() {
	s.Status = SubscriptionCanceled
	s.Plan = store.PlanFree
	s.CancelAtPeriodEnd = false
	s.Touch()
}

// RequestCancel flags cancellation at period end
func (s *Subscription) RequestCancel() error {
	if s.Status != SubscriptionActive && s.Status != SubscriptionPastDue {
		return shared.NewDomainError("INVALID_STATE", "Only active subscriptions can be cancelled")
	}
	if s.StripeSubscriptionID == "" {
		return shared.NewDomainError("INVALID_STATE", "Subscription has no Stripe reference")
	}
	s.CancelAtPeriodEnd = true
	s.Touch()
	return nil
}

// IsActive reports whether the paid plan is in force
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionPastDue
}

// SubscriptionRepository defines persistence for subscriptions
type SubscriptionRepository interface {
	FindByStore(ctx context.Context, storeID uuid.UUID) (*Subscription, error)
	FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*Subscription, error)
	Save(ctx context.Context, sub *Subscription) error
}
