package cart

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for carts
type Repository interface {
	// FindByToken loads a cart with its items. Expired carts are not found.
	FindByToken(ctx context.Context, storeID uuid.UUID, token string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, storeID, id uuid.UUID) error
}
