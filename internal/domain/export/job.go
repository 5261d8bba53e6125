// Package export models CSV export requests that are too large to stream.
package export

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Entity is an exportable resource
type Entity string

const (
	EntityOrders   Entity = "orders"
	EntityProducts Entity = "products"
)

// IsValid checks if the entity is exportable
func (e Entity) IsValid() bool {
	return e == EntityOrders || e == EntityProducts
}

// JobStatus is the lifecycle of an async export
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Job is an async export request
type Job struct {
	shared.BaseEntity
	StoreID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	Entity      Entity            `gorm:"type:varchar(20);not null"`
	Filter      map[string]string `gorm:"type:jsonb;serializer:json"`
	Status      JobStatus         `gorm:"type:varchar(20);not null"`
	RowCount    int64             `gorm:"not null;default:0"`
	FileKey     string            `gorm:"type:varchar(500)"`
	Error       string            `gorm:"type:varchar(1000)"`
	RequestedBy *uuid.UUID        `gorm:"type:uuid"`
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (Job) TableName() string {
	return "export_jobs"
}

// NewJob creates a pending export job
func NewJob(storeID uuid.UUID, entity Entity, filter map[string]string, requestedBy *uuid.UUID, rowCount int64) (*Job, error) {
	if !entity.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY", "Unsupported export entity")
	}
	return &Job{
		BaseEntity:  shared.NewBaseEntity(),
		StoreID:     storeID,
		Entity:      entity,
		Filter:      filter,
		Status:      JobPending,
		RowCount:    rowCount,
		RequestedBy: requestedBy,
	}, nil
}

// Start marks the job running
func (j *Job) Start() {
	j.Status = JobRunning
	j.Error = ""
	j.Touch()
}

// Complete records the uploaded file
func (j *Job) Complete(fileKey string, rows int64) {
	now := time.Now()
	j.Status = JobCompleted
	j.FileKey = fileKey
	j.RowCount = rows
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail records the failure reason
func (j *Job) Fail(err error) {
	msg := err.Error()
	if len(msg) > 1000 {
		msg = msg[:1000]
	}
	j.Status = JobFailed
	j.Error = msg
	j.Touch()
}

// FileName is the download name of the export
func (j *Job) FileName() string {
	return FileName(j.Entity, j.CreatedAt)
}

// FileName builds "<entity>-<yyyymmdd-hhmmss>.csv"
func FileName(entity Entity, at time.Time) string {
	return string(entity) + "-" + at.UTC().Format("20060102-150405") + ".csv"
}

// JobRepository defines persistence for export jobs
type JobRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*Job, error)
	FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]Job, error)
	CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, job *Job) error
}
