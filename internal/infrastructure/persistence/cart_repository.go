package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements cart.Repository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByToken loads a live cart with its items
func (r *GormCartRepository) FindByToken(ctx context.Context, storeID uuid.UUID, token string) (*cart.Cart, error) {
	var c cart.Cart
	if err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("store_id = ? AND token = ? AND expires_at > ?", storeID, token, time.Now()).
		First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Save persists the cart and replaces its item set
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(c).Error; err != nil {
			return err
		}

		keep := make([]uuid.UUID, 0, len(c.Items))
		for i := range c.Items {
			c.Items[i].CartID = c.ID
			keep = append(keep, c.Items[i].ID)
		}

		del := tx.Where("cart_id = ?", c.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&cart.Item{}).Error; err != nil {
			return err
		}

		for i := range c.Items {
			if err := tx.Save(&c.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a cart and its items
func (r *GormCartRepository) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&cart.Item{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&cart.Cart{}, "store_id = ? AND id = ?", storeID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// DeleteExpired purges carts past their expiry. Used by the maintenance job.
func (r *GormCartRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&cart.Cart{}).Select("id").Where("expires_at <= ?", now)
		if err := tx.Where("cart_id IN (?)", expired).Delete(&cart.Item{}).Error; err != nil {
			return err
		}
		result := tx.Where("expires_at <= ?", now).Delete(&cart.Cart{})
		total = result.RowsAffected
		return result.Error
	})
	return total, err
}

var _ cart.Repository = (*GormCartRepository)(nil)
