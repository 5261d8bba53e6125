// Package audit records who did what to which entity. The same table doubles
// as the key/value store behind webhook idempotency.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Actions recorded by the application
const (
	ActionProductCreated     = "product.created"
	ActionProductUpdated     = "product.updated"
	ActionProductDeleted     = "product.deleted"
	ActionOrderStatusChanged = "order.status_changed"
	ActionOrderCancelled     = "order.cancelled"
	ActionOrderRefunded      = "order.refunded"
	ActionMemberAdded        = "member.added"
	ActionMemberRoleChanged  = "member.role_changed"
	ActionMemberRemoved      = "member.removed"
	ActionExportRequested    = "export.requested"
	ActionImportCompleted    = "import.completed"
	ActionStoreUpdated       = "store.updated"
	ActionStoreDeleted       = "store.deleted"

	ActionWebhookProcessing = "webhook.processing"
	ActionWebhookProcessed  = "webhook.processed"
)

// EntityWebhook is the entity type used for idempotency placeholders
const EntityWebhook = "webhook"

// Log is an audit entry. IdempotencyKey is unique when set.
type Log struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	StoreID        *uuid.UUID        `gorm:"type:uuid;index"`
	ActorID        *uuid.UUID        `gorm:"type:uuid"`
	Action         string            `gorm:"type:varchar(64);not null;index"`
	EntityType     string            `gorm:"type:varchar(64);not null"`
	EntityID       string            `gorm:"type:varchar(255);not null"`
	Metadata       map[string]string `gorm:"type:jsonb;serializer:json"`
	IdempotencyKey *string           `gorm:"type:varchar(64);uniqueIndex"`
	ExpiresAt      *time.Time        `gorm:"index"`
	CreatedAt      time.Time         `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Log) TableName() string {
	return "audit_logs"
}

// NewLog creates an audit entry
func NewLog(storeID, actorID *uuid.UUID, action, entityType, entityID string, metadata map[string]string) *Log {
	return &Log{
		ID:         uuid.New(),
		StoreID:    storeID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}
}

// Repository defines persistence for audit entries
type Repository interface {
	Save(ctx context.Context, entry *Log) error
	FindAllForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]Log, error)
	CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error)
}
