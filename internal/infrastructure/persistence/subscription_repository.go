package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByStore loads the subscription of a store
func (r *GormSubscriptionRepository) FindByStore(ctx context.Context, storeID uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := conn(ctx, r.db).Where("store_id = ?", storeID).First(&sub).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// FindByStripeSubscriptionID loads a subscription by its Stripe id
func (r *GormSubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := conn(ctx, r.db).Where("stripe_subscription_id = ?", subscriptionID).First(&sub).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// Save creates or updates a subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	return conn(ctx, r.db).Save(sub).Error
}

var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
