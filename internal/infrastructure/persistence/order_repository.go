package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

// FindByIDForStore finds an order with items and payments
func (r *GormOrderRepository) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := preloadOrder(conn(ctx, r.db)).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// FindByNumber finds an order by its number within a store
func (r *GormOrderRepository) FindByNumber(ctx context.Context, storeID uuid.UUID, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := preloadOrder(conn(ctx, r.db)).
		Where("store_id = ? AND order_number = ?", storeID, strings.ToUpper(strings.TrimSpace(orderNumber))).
		First(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// FindAllForStore lists orders (with items) of a store
func (r *GormOrderRepository) FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	var orders []order.Order
	query := r.applyFilterWithoutPagination(conn(ctx, r.db).Model(&order.Order{}).Where("store_id = ?", storeID), filter)
	query = paginate(query, filter, OrderSortFields, "created_at")
	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CountForStore counts orders of a store matching the filter
func (r *GormOrderRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(conn(ctx, r.db).Model(&order.Order{}).Where("store_id = ?", storeID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindBatchForExport returns up to limit orders strictly after the cursor in
// (created_at, id) order
func (r *GormOrderRepository) FindBatchForExport(ctx context.Context, storeID uuid.UUID, filter shared.Filter, after *order.Cursor, limit int) ([]order.Order, error) {
	query := r.applyFilterWithoutPagination(conn(ctx, r.db).Model(&order.Order{}).Where("store_id = ?", storeID), filter)
	if after != nil {
		query = query.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var orders []order.Order
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save persists the order header under its version check and inserts items
// that do not exist yet. Items are immutable once written; payments have
// their own repository.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, o); err != nil {
			return err
		}
		if len(o.Items) == 0 {
			return nil
		}
		for i := range o.Items {
			o.Items[i].OrderID = o.ID
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&o.Items).Error
	})
}

// NextOrderNumber returns the next number for the store on the given day.
// Format: ORD-YYYYMMDD-NNNNN
//
// Call it inside the transaction that inserts the order. On postgres it takes
// a per-store advisory lock held until that transaction ends, so concurrent
// checkouts in one store number their orders one after the other.
func (r *GormOrderRepository) NextOrderNumber(ctx context.Context, storeID uuid.UUID, at time.Time) (string, error) {
	prefix := fmt.Sprintf("ORD-%s-", at.UTC().Format("20060102"))

	db := conn(ctx, r.db)
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "order_number:"+storeID.String()).Error; err != nil {
			return "", fmt.Errorf("failed to lock order numbers: %w", err)
		}
	}

	var last order.Order
	err := db.Unscoped().
		Select("order_number").
		Where("store_id = ? AND order_number LIKE ?", storeID, prefix+"%").
		Order("order_number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	next := 1
	if err == nil {
		var n int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(last.OrderNumber, prefix), "%d", &n); scanErr == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

func (r *GormOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(`(LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(customer_email) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if v, ok := filterString(filter, "status"); ok {
		query = query.Where("status = ?", strings.ToUpper(v))
	}
	if v, ok := filterString(filter, "payment_status"); ok {
		query = query.Where("payment_status = ?", strings.ToUpper(v))
	}
	if from, ok := filterTime(filter, "from"); ok {
		query = query.Where("created_at >= ?", from)
	}
	if to, ok := filterTime(filter, "to"); ok {
		query = query.Where("created_at < ?", to)
	}
	return query
}

// filterTime reads a time filter given as time.Time or an RFC3339 / date string
func filterTime(filter shared.Filter, key string) (time.Time, bool) {
	switch v := filter.Filters[key].(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// GormPaymentRepository implements order.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Payment, error) {
	var p order.Payment
	if err := conn(ctx, r.db).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindByProviderRef finds a payment by its gateway reference
func (r *GormPaymentRepository) FindByProviderRef(ctx context.Context, provider order.Provider, ref string) (*order.Payment, error) {
	var p order.Payment
	if err := conn(ctx, r.db).
		Where("provider = ? AND provider_ref = ?", provider, ref).
		First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, p *order.Payment) error {
	return conn(ctx, r.db).Save(p).Error
}

var (
	_ order.Repository        = (*GormOrderRepository)(nil)
	_ order.PaymentRepository = (*GormPaymentRepository)(nil)
)
