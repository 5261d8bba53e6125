package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAttributeRepository implements catalog.AttributeRepository using GORM
type GormAttributeRepository struct {
	db *gorm.DB
}

// NewGormAttributeRepository creates a new GormAttributeRepository
func NewGormAttributeRepository(db *gorm.DB) *GormAttributeRepository {
	return &GormAttributeRepository{db: db}
}

// FindByIDForStore finds an attribute by ID within a store
func (r *GormAttributeRepository) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*catalog.Attribute, error) {
	var attr catalog.Attribute
	if err := conn(ctx, r.db).Where("store_id = ? AND id = ?", storeID, id).First(&attr).Error; err != nil {
		return nil, notFound(err)
	}
	return &attr, nil
}

// FindAllForStore lists every attribute of a store by name
func (r *GormAttributeRepository) FindAllForStore(ctx context.Context, storeID uuid.UUID) ([]catalog.Attribute, error) {
	var attrs []catalog.Attribute
	if err := conn(ctx, r.db).Where("store_id = ?", storeID).Order("name ASC").Find(&attrs).Error; err != nil {
		return nil, err
	}
	return attrs, nil
}

// ExistsByName checks name uniqueness case-insensitively
func (r *GormAttributeRepository) ExistsByName(ctx context.Context, storeID uuid.UUID, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := conn(ctx, r.db).Model(&catalog.Attribute{}).
		Where("store_id = ? AND LOWER(name) = ?", storeID, strings.ToLower(strings.TrimSpace(name)))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an attribute
func (r *GormAttributeRepository) Save(ctx context.Context, attr *catalog.Attribute) error {
	return saveVersioned(conn(ctx, r.db), attr)
}

// DeleteForStore soft deletes an attribute
func (r *GormAttributeRepository) DeleteForStore(ctx context.Context, storeID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&catalog.Attribute{}, "store_id = ? AND id = ?", storeID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ catalog.AttributeRepository = (*GormAttributeRepository)(nil)
