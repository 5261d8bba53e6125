package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCategoryRepository implements catalog.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByIDForStore finds a category by ID within a store
func (r *GormCategoryRepository) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*catalog.Category, error) {
	var category catalog.Category
	if err := conn(ctx, r.db).Where("store_id = ? AND id = ?", storeID, id).First(&category).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

// FindBySlug finds a category by slug within a store
func (r *GormCategoryRepository) FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*catalog.Category, error) {
	var category catalog.Category
	if err := conn(ctx, r.db).Where("store_id = ? AND slug = ?", storeID, slug).First(&category).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

// FindAllForStore lists categories of a store, ordered by sort_order by default
func (r *GormCategoryRepository) FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]catalog.Category, error) {
	var categories []catalog.Category
	query := searchByName(conn(ctx, r.db).Model(&catalog.Category{}).Where("store_id = ?", storeID), filter)
	if v, ok := filterString(filter, "parent_id"); ok {
		query = query.Where("parent_id = ?", v)
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "sort_order"
		filter.OrderDir = "asc"
	}
	if err := paginate(query, filter, CatalogSortFields, "sort_order").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CountForStore counts categories of a store
func (r *GormCategoryRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := searchByName(conn(ctx, r.db).Model(&catalog.Category{}).Where("store_id = ?", storeID), filter)
	if v, ok := filterString(filter, "parent_id"); ok {
		query = query.Where("parent_id = ?", v)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySlug checks if another live category in the store uses the slug
func (r *GormCategoryRepository) ExistsBySlug(ctx context.Context, storeID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := conn(ctx, r.db).Model(&catalog.Category{}).Where("store_id = ? AND slug = ?", storeID, slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasChildren checks whether live categories point at id as parent
func (r *GormCategoryRepository) HasChildren(ctx context.Context, storeID, id uuid.UUID) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&catalog.Category{}).
		Where("store_id = ? AND parent_id = ?", storeID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	return saveVersioned(conn(ctx, r.db), category)
}

// DeleteForStore soft deletes a category and detaches its products
func (r *GormCategoryRepository) DeleteForStore(ctx context.Context, storeID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&catalog.Category{}, "store_id = ? AND id = ?", storeID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return tx.Model(&catalog.Product{}).
			Where("store_id = ? AND category_id = ?", storeID, id).
			Update("category_id", nil).Error
	})
}

var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
