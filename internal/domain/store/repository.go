package store

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for stores
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)
	FindBySlug(ctx context.Context, slug string) (*Store, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Store, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Save(ctx context.Context, store *Store) error
	// Delete soft deletes the store
	Delete(ctx context.Context, id uuid.UUID) error
}
