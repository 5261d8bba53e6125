package persistence

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/export"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// storeScopedIndexes mirrors the partial unique indexes from the SQL migrations
var storeScopedIndexes = []string{
	`CREATE UNIQUE INDEX idx_products_store_slug ON products (store_id, slug) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX idx_products_store_sku ON products (store_id, sku) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX idx_brands_store_slug ON brands (store_id, slug) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX idx_categories_store_slug ON categories (store_id, slug) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX idx_orders_store_number ON orders (store_id, order_number)`,
}

// setupTestDB opens an isolated in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&store.Store{},
		&identity.User{},
		&identity.Membership{},
		&catalog.Brand{},
		&catalog.Category{},
		&catalog.Attribute{},
		&catalog.Product{},
		&cart.Cart{},
		&cart.Item{},
		&order.Order{},
		&order.Item{},
		&order.Payment{},
		&billing.Subscription{},
		&audit.Log{},
		&export.Job{},
	))
	for _, stmt := range storeScopedIndexes {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
