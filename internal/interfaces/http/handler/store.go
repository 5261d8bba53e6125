package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	storeapp "github.com/storefront/backend/internal/application/store"
)

// StoreService is the part of storeapp.StoreService the dashboard uses
type StoreService interface {
	Create(ctx context.Context, ownerID uuid.UUID, req storeapp.CreateStoreRequest) (*storeapp.StoreResponse, error)
	Get(ctx context.Context, storeID uuid.UUID) (*storeapp.StoreResponse, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]storeapp.UserStoreResponse, error)
	Update(ctx context.Context, storeID, actorID uuid.UUID, req storeapp.UpdateStoreRequest) (*storeapp.StoreResponse, error)
	Delete(ctx context.Context, storeID, actorID uuid.UUID) error
}

// StoreHandler handles store management
type StoreHandler struct {
	BaseHandler
	storeService StoreService
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(storeService StoreService) *StoreHandler {
	return &StoreHandler{storeService: storeService}
}

// List returns the stores of the current user
// GET /api/v1/stores
func (h *StoreHandler) List(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	stores, err := h.storeService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stores)
}

// Create opens a store owned by the current user. The caller switches
// to it with /auth/switch-store.
// POST /api/v1/stores
func (h *StoreHandler) Create(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req storeapp.CreateStoreRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.storeService.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, st)
}

// Get returns the current store
// GET /api/v1/stores/:storeId
func (h *StoreHandler) Get(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	st, err := h.storeService.Get(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// Update changes the store settings
// PUT /api/v1/stores/:storeId
func (h *StoreHandler) Update(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	var req storeapp.UpdateStoreRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.storeService.Update(c.Request.Context(), storeID, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// Delete soft deletes the store
// DELETE /api/v1/stores/:storeId
func (h *StoreHandler) Delete(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}

	if err := h.storeService.Delete(c.Request.Context(), storeID, actorID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
