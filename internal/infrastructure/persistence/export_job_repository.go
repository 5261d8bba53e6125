package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/export"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormExportJobRepository implements export.JobRepository using GORM
type GormExportJobRepository struct {
	db *gorm.DB
}

// NewGormExportJobRepository creates a new GormExportJobRepository
func NewGormExportJobRepository(db *gorm.DB) *GormExportJobRepository {
	return &GormExportJobRepository{db: db}
}

// FindByID loads a job regardless of store. Only the background executor uses it.
func (r *GormExportJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*export.Job, error) {
	var job export.Job
	if err := conn(ctx, r.db).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// FindByIDForStore loads a job within a store
func (r *GormExportJobRepository) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*export.Job, error) {
	var job export.Job
	if err := conn(ctx, r.db).Where("store_id = ? AND id = ?", storeID, id).First(&job).Error; err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// FindAllForStore lists a store's export jobs
func (r *GormExportJobRepository) FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]export.Job, error) {
	var jobs []export.Job
	query := r.scope(conn(ctx, r.db), storeID, filter)
	if err := paginate(query, filter, ExportJobSortFields, "created_at").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountForStore counts a store's export jobs
func (r *GormExportJobRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.scope(conn(ctx, r.db), storeID, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a job
func (r *GormExportJobRepository) Save(ctx context.Context, job *export.Job) error {
	return conn(ctx, r.db).Save(job).Error
}

func (r *GormExportJobRepository) scope(db *gorm.DB, storeID uuid.UUID, filter shared.Filter) *gorm.DB {
	query := db.Model(&export.Job{}).Where("store_id = ?", storeID)
	if v, ok := filterString(filter, "status"); ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := filterString(filter, "entity"); ok {
		query = query.Where("entity = ?", v)
	}
	return query
}

var _ export.JobRepository = (*GormExportJobRepository)(nil)
