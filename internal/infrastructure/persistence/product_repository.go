package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDForStore finds a product by ID within a store
func (r *GormProductRepository) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := conn(ctx, r.db).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&product).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// FindByIDsForStore finds multiple products by their IDs
func (r *GormProductRepository) FindByIDsForStore(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var products []catalog.Product
	if err := conn(ctx, r.db).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindBySlug finds a product by slug within a store
func (r *GormProductRepository) FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*catalog.Product, error) {
	var product catalog.Product
	if err := conn(ctx, r.db).
		Where("store_id = ? AND slug = ?", storeID, slug).
		First(&product).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// FindBySKU finds a product by SKU within a store
func (r *GormProductRepository) FindBySKU(ctx context.Context, storeID uuid.UUID, sku string) (*catalog.Product, error) {
	var product catalog.Product
	if err := conn(ctx, r.db).
		Where("store_id = ? AND sku = ?", storeID, strings.ToUpper(strings.TrimSpace(sku))).
		First(&product).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// FindAllForStore lists products of a store
func (r *GormProductRepository) FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]catalog.Product, error) {
	var products []catalog.Product
	query := r.applyFilter(conn(ctx, r.db).Model(&catalog.Product{}).Where("store_id = ?", storeID), filter)
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CountForStore counts products of a store matching the filter
func (r *GormProductRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(conn(ctx, r.db).Model(&catalog.Product{}).Where("store_id = ?", storeID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySlug checks if another live product in the store uses the slug
func (r *GormProductRepository) ExistsBySlug(ctx context.Context, storeID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, storeID, "slug = ?", slug, excludeID)
}

// ExistsBySKU checks if another live product in the store uses the SKU
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, storeID uuid.UUID, sku string, excludeID *uuid.UUID) (bool, error) {
	return r.exists(ctx, storeID, "sku = ?", strings.ToUpper(strings.TrimSpace(sku)), excludeID)
}

func (r *GormProductRepository) exists(ctx context.Context, storeID uuid.UUID, cond string, value any, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := conn(ctx, r.db).Model(&catalog.Product{}).Where("store_id = ?", storeID).Where(cond, value)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates a product or updates it if its version is unchanged since it
// was read
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return saveVersioned(conn(ctx, r.db), product)
}

// DecrementStock takes quantity from stock in a single conditional UPDATE
func (r *GormProductRepository) DecrementStock(ctx context.Context, storeID, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return r.shiftStock(ctx, storeID, id, -quantity)
}

// AdjustStock applies a signed delta to stock. Stock never goes below zero.
func (r *GormProductRepository) AdjustStock(ctx context.Context, storeID, id uuid.UUID, delta int) error {
	if delta == 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Stock delta cannot be zero")
	}
	return r.shiftStock(ctx, storeID, id, delta)
}

// shiftStock moves stock by delta and bumps the version, so a product read
// before the change can no longer be saved over it
func (r *GormProductRepository) shiftStock(ctx context.Context, storeID, id uuid.UUID, delta int) error {
	result := conn(ctx, r.db).Model(&catalog.Product{}).
		Where("store_id = ? AND id = ? AND stock + ? >= 0", storeID, id, delta).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now(),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByIDForStore(ctx, storeID, id); err != nil {
			return err
		}
		return shared.ErrInsufficientStock
	}
	return nil
}

// IncrementStock returns quantity to stock. Soft deleted products are restocked too.
func (r *GormProductRepository) IncrementStock(ctx context.Context, storeID, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	result := conn(ctx, r.db).Unscoped().Model(&catalog.Product{}).
		Where("store_id = ? AND id = ?", storeID, id).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": time.Now(),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindBatchForExport returns up to limit products strictly after the cursor
func (r *GormProductRepository) FindBatchForExport(ctx context.Context, storeID uuid.UUID, filter shared.Filter, after *shared.Cursor, limit int) ([]catalog.Product, error) {
	query := r.applyFilterWithoutPagination(conn(ctx, r.db).Model(&catalog.Product{}).Where("store_id = ?", storeID), filter)
	if after != nil {
		query = query.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var products []catalog.Product
	if err := query.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// DeleteForStore soft deletes a product within a store
func (r *GormProductRepository) DeleteForStore(ctx context.Context, storeID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&catalog.Product{}, "store_id = ? AND id = ?", storeID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	return paginate(r.applyFilterWithoutPagination(query, filter), filter, ProductSortFields, "created_at")
}

func (r *GormProductRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if v, ok := filterString(filter, "status"); ok {
		query = query.Where("status = ?", strings.ToUpper(v))
	}
	if v, ok := filterString(filter, "brand_id"); ok {
		query = query.Where("brand_id = ?", v)
	}
	if v, ok := filterString(filter, "category_id"); ok {
		query = query.Where("category_id = ?", v)
	}
	return query
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
