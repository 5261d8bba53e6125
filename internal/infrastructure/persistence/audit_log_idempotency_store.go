package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuditLogIdempotencyStore implements shared.IdempotencyStore on top of the
// audit_logs table. A placeholder row holds the unique idempotency_key with
// action webhook.processing; committing flips it to webhook.processed.
// expires_at carries the lock deadline, then the retention deadline.
type AuditLogIdempotencyStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAuditLogIdempotencyStore creates a new AuditLogIdempotencyStore
func NewAuditLogIdempotencyStore(db *gorm.DB) *AuditLogIdempotencyStore {
	return &AuditLogIdempotencyStore{db: db, now: time.Now}
}

// Acquire inserts the placeholder. An existing row whose deadline has passed
// is reclaimed with a conditional UPDATE so only one caller wins.
func (s *AuditLogIdempotencyStore) Acquire(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	now := s.now()
	expires := now.Add(lockTTL)
	entry := &audit.Log{
		ID:             uuid.New(),
		Action:         audit.ActionWebhookProcessing,
		EntityType:     audit.EntityWebhook,
		EntityID:       key,
		IdempotencyKey: &key,
		ExpiresAt:      &expires,
		CreatedAt:      now,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("insert idempotency placeholder: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	reclaim := s.db.WithContext(ctx).Model(&audit.Log{}).
		Where("idempotency_key = ? AND expires_at < ?", key, now).
		Updates(map[string]any{
			"action":     audit.ActionWebhookProcessing,
			"expires_at": expires,
			"created_at": now,
		})
	if reclaim.Error != nil {
		return false, fmt.Errorf("reclaim idempotency placeholder: %w", reclaim.Error)
	}
	return reclaim.RowsAffected == 1, nil
}

// Commit marks the placeholder processed and keeps it for retention
func (s *AuditLogIdempotencyStore) Commit(ctx context.Context, key string, retention time.Duration) error {
	expires := s.now().Add(retention)
	result := s.db.WithContext(ctx).Model(&audit.Log{}).
		Where("idempotency_key = ? AND action = ?", key, audit.ActionWebhookProcessing).
		Updates(map[string]any{
			"action":     audit.ActionWebhookProcessed,
			"expires_at": expires,
		})
	if result.Error != nil {
		return fmt.Errorf("commit idempotency key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("IDEMPOTENCY_NOT_HELD", "idempotency key is not held")
	}
	return nil
}

// Release deletes an uncommitted placeholder
func (s *AuditLogIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("idempotency_key = ? AND action = ?", key, audit.ActionWebhookProcessing).
		Delete(&audit.Log{}).Error
}

// Prune deletes webhook rows whose deadline passed before now
func (s *AuditLogIdempotencyStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("entity_type = ? AND expires_at < ?", audit.EntityWebhook, now).
		Delete(&audit.Log{})
	return result.RowsAffected, result.Error
}

// Close is a no-op; the database handle is owned by the caller
func (s *AuditLogIdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*AuditLogIdempotencyStore)(nil)
