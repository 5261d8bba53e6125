package order

import (
	"context"

	"github.com/storefront/backend/internal/domain/order"
)

// PaymentGateway opens a hosted payment session for an order. providerRef
// is stored on the payment and later matches the webhook.
type PaymentGateway interface {
	Provider() order.Provider
	CreateSession(ctx context.Context, o *order.Order, p *order.Payment) (redirectURL, providerRef string, err error)
}
