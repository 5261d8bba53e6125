package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBrandRepository implements catalog.BrandRepository using GORM
type GormBrandRepository struct {
	db *gorm.DB
}

// NewGormBrandRepository creates a new GormBrandRepository
func NewGormBrandRepository(db *gorm.DB) *GormBrandRepository {
	return &GormBrandRepository{db: db}
}

// FindByIDForStore finds a brand by ID within a store
func (r *GormBrandRepository) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*catalog.Brand, error) {
	var brand catalog.Brand
	if err := conn(ctx, r.db).Where("store_id = ? AND id = ?", storeID, id).First(&brand).Error; err != nil {
		return nil, notFound(err)
	}
	return &brand, nil
}

// FindBySlug finds a brand by slug within a store
func (r *GormBrandRepository) FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*catalog.Brand, error) {
	var brand catalog.Brand
	if err := conn(ctx, r.db).Where("store_id = ? AND slug = ?", storeID, slug).First(&brand).Error; err != nil {
		return nil, notFound(err)
	}
	return &brand, nil
}

// FindAllForStore lists brands of a store
func (r *GormBrandRepository) FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]catalog.Brand, error) {
	var brands []catalog.Brand
	query := searchByName(conn(ctx, r.db).Model(&catalog.Brand{}).Where("store_id = ?", storeID), filter)
	if err := paginate(query, filter, CatalogSortFields, "name").Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

// CountForStore counts brands of a store
func (r *GormBrandRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := searchByName(conn(ctx, r.db).Model(&catalog.Brand{}).Where("store_id = ?", storeID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySlug checks if another live brand in the store uses the slug
func (r *GormBrandRepository) ExistsBySlug(ctx context.Context, storeID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := conn(ctx, r.db).Model(&catalog.Brand{}).Where("store_id = ? AND slug = ?", storeID, slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a brand
func (r *GormBrandRepository) Save(ctx context.Context, brand *catalog.Brand) error {
	return saveVersioned(conn(ctx, r.db), brand)
}

// DeleteForStore soft deletes a brand and detaches its products
func (r *GormBrandRepository) DeleteForStore(ctx context.Context, storeID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&catalog.Brand{}, "store_id = ? AND id = ?", storeID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return tx.Model(&catalog.Product{}).
			Where("store_id = ? AND brand_id = ?", storeID, id).
			Update("brand_id", nil).Error
	})
}

// searchByName applies a case-insensitive name search
func searchByName(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search == "" {
		return query
	}
	return query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(filter.Search))
}

var _ catalog.BrandRepository = (*GormBrandRepository)(nil)
