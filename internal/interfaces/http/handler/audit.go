package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/shared"
)

// AuditLogService lists a store's audit trail
type AuditLogService interface {
	List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[auditapp.LogResponse], error)
}

// AuditLogHandler serves the audit log
type AuditLogHandler struct {
	BaseHandler
	auditService AuditLogService
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(auditService AuditLogService) *AuditLogHandler {
	return &AuditLogHandler{auditService: auditService}
}

// List returns a page of audit entries, filterable by action, entity_type and entity_id
// GET /api/v1/stores/:storeId/audit-logs
func (h *AuditLogHandler) List(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	filter, ok := bindList(c, "action", "entity_type", "entity_id")
	if !ok {
		return
	}

	page, err := h.auditService.List(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}
