// Package audit records and lists store activity.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Entry is one activity to record
type Entry struct {
	StoreID    uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]string
}

// Recorder records activity. Recording never fails the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Entry) {}

// Nop returns a Recorder that drops every entry
func Nop() Recorder {
	return nopRecorder{}
}

// LogResponse is an audit entry as returned by the API
type LogResponse struct {
	ID         uuid.UUID         `json:"id"`
	ActorID    *uuid.UUID        `json:"actor_id,omitempty"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// AuditService writes audit entries best effort and lists them for admins
type AuditService struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo audit.Repository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record saves the entry. Failures are logged and swallowed.
func (s *AuditService) Record(ctx context.Context, entry Entry) {
	storeID := entry.StoreID
	log := audit.NewLog(&storeID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, entry.Metadata)
	if err := s.repo.Save(ctx, log); err != nil {
		s.logger.Warn("Failed to record audit entry",
			zap.String("store_id", storeID.String()),
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
	}
}

// List returns a page of a store's audit entries, newest first
func (s *AuditService) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[LogResponse], error) {
	filter = filter.Normalize()
	logs, err := s.repo.FindAllForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[LogResponse]{}, err
	}
	total, err := s.repo.CountForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[LogResponse]{}, err
	}

	items := make([]LogResponse, len(logs))
	for i, l := range logs {
		items[i] = LogResponse{
			ID:         l.ID,
			ActorID:    l.ActorID,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			Metadata:   l.Metadata,
			CreatedAt:  l.CreatedAt,
		}
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

var _ Recorder = (*AuditService)(nil)
