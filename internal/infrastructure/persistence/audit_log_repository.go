package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAuditLogRepository implements audit.Repository using GORM. Idempotency
// placeholders share the table but are excluded from listings.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Save inserts an audit entry
func (r *GormAuditLogRepository) Save(ctx context.Context, entry *audit.Log) error {
	return conn(ctx, r.db).Create(entry).Error
}

// FindAllForStore lists a store's audit entries, newest first
func (r *GormAuditLogRepository) FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]audit.Log, error) {
	var logs []audit.Log
	filter = filter.Normalize()
	query := r.scope(conn(ctx, r.db), storeID, filter).
		Order("created_at DESC").Order("id DESC").
		Offset(filter.Offset()).Limit(filter.PageSize)
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// CountForStore counts a store's audit entries
func (r *GormAuditLogRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.scope(conn(ctx, r.db), storeID, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAuditLogRepository) scope(db *gorm.DB, storeID uuid.UUID, filter shared.Filter) *gorm.DB {
	query := db.Model(&audit.Log{}).
		Where("store_id = ? AND entity_type <> ?", storeID, audit.EntityWebhook)
	if v, ok := filterString(filter, "action"); ok {
		query = query.Where("action = ?", v)
	}
	if v, ok := filterString(filter, "entity_type"); ok {
		query = query.Where("entity_type = ?", v)
	}
	if v, ok := filterString(filter, "entity_id"); ok {
		query = query.Where("entity_id = ?", v)
	}
	return query
}

var _ audit.Repository = (*GormAuditLogRepository)(nil)
