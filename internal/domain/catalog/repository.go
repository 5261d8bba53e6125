package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductRepository defines persistence for products. Every method is store scoped.
type ProductRepository interface {
	FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*Product, error)
	FindByIDsForStore(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]Product, error)
	FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*Product, error)
	FindBySKU(ctx context.Context, storeID uuid.UUID, sku string) (*Product, error)
	FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]Product, error)
	CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error)
	// FindBatchForExport returns products ordered by (created_at, id)
	// strictly after the cursor
	FindBatchForExport(ctx context.Context, storeID uuid.UUID, filter shared.Filter, after *shared.Cursor, limit int) ([]Product, error)
	ExistsBySlug(ctx context.Context, storeID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error)
	ExistsBySKU(ctx context.Context, storeID uuid.UUID, sku string, excludeID *uuid.UUID) (bool, error)
	Save(ctx context.Context, product *Product) error
	// DecrementStock atomically takes quantity from stock, failing with
	// ErrInsufficientStock when not enough is available
	DecrementStock(ctx context.Context, storeID, id uuid.UUID, quantity int) error
	IncrementStock(ctx context.Context, storeID, id uuid.UUID, quantity int) error
	// AdjustStock atomically applies a signed delta, failing with
	// ErrInsufficientStock if stock would go negative
	AdjustStock(ctx context.Context, storeID, id uuid.UUID, delta int) error
	DeleteForStore(ctx context.Context, storeID, id uuid.UUID) error
}

// BrandRepository defines persistence for brands
type BrandRepository interface {
	FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*Brand, error)
	FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*Brand, error)
	FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]Brand, error)
	CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error)
	ExistsBySlug(ctx context.Context, storeID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error)
	Save(ctx context.Context, brand *Brand) error
	DeleteForStore(ctx context.Context, storeID, id uuid.UUID) error
}

// CategoryRepository defines persistence for categories
type CategoryRepository interface {
	FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*Category, error)
	FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*Category, error)
	FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]Category, error)
	CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error)
	ExistsBySlug(ctx context.Context, storeID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error)
	HasChildren(ctx context.Context, storeID, id uuid.UUID) (bool, error)
	Save(ctx context.Context, category *Category) error
	DeleteForStore(ctx context.Context, storeID, id uuid.UUID) error
}

// AttributeRepository defines persistence for attributes
type AttributeRepository interface {
	FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*Attribute, error)
	FindAllForStore(ctx context.Context, storeID uuid.UUID) ([]Attribute, error)
	ExistsByName(ctx context.Context, storeID uuid.UUID, name string, excludeID *uuid.UUID) (bool, error)
	Save(ctx context.Context, attribute *Attribute) error
	DeleteForStore(ctx context.Context, storeID, id uuid.UUID) error
}
