package billing

import (
	"time"

	"github.com/storefront/backend/internal/domain/billing"
)

// CreateCheckoutRequest selects the plan to buy
type CreateCheckoutRequest struct {
	Plan string `json:"plan" binding:"required,oneof=BASIC PRO"`
}

// CheckoutResponse is where the store owner completes payment
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// SubscriptionResponse is a store's plan and its billing state
type SubscriptionResponse struct {
	Plan              string     `json:"plan"`
	Status            string     `json:"status"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}

// StatusNone is reported for stores that never subscribed
const StatusNone = "NONE"

func toSubscriptionResponse(sub *billing.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		Plan:              string(sub.Plan),
		Status:            string(sub.Status),
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
}
