package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// MembershipService is the part of identityapp.MembershipService the handler uses
type MembershipService interface {
	List(ctx context.Context, storeID uuid.UUID) ([]identityapp.MemberResponse, error)
	Add(ctx context.Context, storeID uuid.UUID, actor identityapp.Actor, input identityapp.AddMemberInput) (*identityapp.MemberResponse, error)
	ChangeRole(ctx context.Context, storeID, userID uuid.UUID, actor identityapp.Actor, input identityapp.ChangeRoleInput) error
	Remove(ctx context.Context, storeID, userID uuid.UUID, actor identityapp.Actor) error
}

// MemberHandler manages the members of a store
type MemberHandler struct {
	BaseHandler
	membershipService MembershipService
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(membershipService MembershipService) *MemberHandler {
	return &MemberHandler{membershipService: membershipService}
}

// actor describes the caller for owner-only checks in the service
func (h *MemberHandler) actor(c *gin.Context) (uuid.UUID, identityapp.Actor, bool) {
	storeID, userID, ok := h.scope(c)
	if !ok {
		return uuid.Nil, identityapp.Actor{}, false
	}
	return storeID, identityapp.Actor{UserID: userID, Permissions: middleware.GetJWTPermissions(c)}, true
}

// List returns the members of the store
// GET /api/v1/stores/:storeId/members
func (h *MemberHandler) List(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	members, err := h.membershipService.List(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, members)
}

// Add gives an existing user a role in the store
// POST /api/v1/stores/:storeId/members
func (h *MemberHandler) Add(c *gin.Context) {
	storeID, actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req identityapp.AddMemberInput
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.membershipService.Add(c.Request.Context(), storeID, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, member)
}

// ChangeRole changes a member's role
// PUT /api/v1/stores/:storeId/members/:userId
func (h *MemberHandler) ChangeRole(c *gin.Context) {
	storeID, actor, ok := h.actor(c)
	if !ok {
		return
	}
	userID, ok := h.uuidParam(c, "userId")
	if !ok {
		return
	}
	var req identityapp.ChangeRoleInput
	if !bindJSON(c, &req) {
		return
	}

	if err := h.membershipService.ChangeRole(c.Request.Context(), storeID, userID, actor, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Remove removes a member from the store
// DELETE /api/v1/stores/:storeId/members/:userId
func (h *MemberHandler) Remove(c *gin.Context) {
	storeID, actor, ok := h.actor(c)
	if !ok {
		return
	}
	userID, ok := h.uuidParam(c, "userId")
	if !ok {
		return
	}

	if err := h.membershipService.Remove(c.Request.Context(), storeID, userID, actor); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
