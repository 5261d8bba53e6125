package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Repository defines persistence for orders. Every method is store scoped
// except the lookups used by payment webhooks, which resolve the store from
// the payment row.
type Repository interface {
	FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, storeID uuid.UUID, orderNumber string) (*Order, error)
	FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]Order, error)
	CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error)
	// FindBatchForExport returns orders with items ordered by (created_at, id)
	// strictly after the cursor
	FindBatchForExport(ctx context.Context, storeID uuid.UUID, filter shared.Filter, after *Cursor, limit int) ([]Order, error)
	Save(ctx context.Context, order *Order) error
	NextOrderNumber(ctx context.Context, storeID uuid.UUID, at time.Time) (string, error)
}

// PaymentRepository defines persistence for payment attempts
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByProviderRef(ctx context.Context, provider Provider, ref string) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
}

// Cursor is the keyset position used by FindBatchForExport
type Cursor = shared.Cursor
