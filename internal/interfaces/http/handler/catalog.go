package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// BrandService is the part of catalogapp.BrandService the handler uses
type BrandService interface {
	Create(ctx context.Context, storeID uuid.UUID, req catalogapp.BrandRequest) (*catalogapp.BrandResponse, error)
	Get(ctx context.Context, storeID, brandID uuid.UUID) (*catalogapp.BrandResponse, error)
	List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[catalogapp.BrandResponse], error)
	Update(ctx context.Context, storeID, brandID uuid.UUID, req catalogapp.BrandRequest) (*catalogapp.BrandResponse, error)
	Delete(ctx context.Context, storeID, brandID uuid.UUID) error
}

// CategoryService is the part of catalogapp.CategoryService the handler uses
type CategoryService interface {
	Create(ctx context.Context, storeID uuid.UUID, req catalogapp.CategoryRequest) (*catalogapp.CategoryResponse, error)
	Get(ctx context.Context, storeID, categoryID uuid.UUID) (*catalogapp.CategoryResponse, error)
	List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[catalogapp.CategoryResponse], error)
	Update(ctx context.Context, storeID, categoryID uuid.UUID, req catalogapp.CategoryRequest) (*catalogapp.CategoryResponse, error)
	Delete(ctx context.Context, storeID, categoryID uuid.UUID) error
}

// AttributeService is the part of catalogapp.AttributeService the handler uses
type AttributeService interface {
	Create(ctx context.Context, storeID uuid.UUID, req catalogapp.AttributeRequest) (*catalogapp.AttributeResponse, error)
	List(ctx context.Context, storeID uuid.UUID) ([]catalogapp.AttributeResponse, error)
	Get(ctx context.Context, storeID, attributeID uuid.UUID) (*catalogapp.AttributeResponse, error)
	Update(ctx context.Context, storeID, attributeID uuid.UUID, req catalogapp.AttributeRequest) (*catalogapp.AttributeResponse, error)
	Delete(ctx context.Context, storeID, attributeID uuid.UUID) error
}

// taxonomy is the CRUD surface shared by brands and categories
type taxonomy[Req any, Resp any] interface {
	Create(ctx context.Context, storeID uuid.UUID, req Req) (*Resp, error)
	Get(ctx context.Context, storeID, id uuid.UUID) (*Resp, error)
	List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[Resp], error)
	Update(ctx context.Context, storeID, id uuid.UUID, req Req) (*Resp, error)
	Delete(ctx context.Context, storeID, id uuid.UUID) error
}

// crud serves the five CRUD routes of a taxonomy under /:id
type crud[Req any, Resp any] struct {
	BaseHandler
	service taxonomy[Req, Resp]
}

func (h *crud[Req, Resp]) List(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	filter, ok := bindList(c)
	if !ok {
		return
	}

	page, err := h.service.List(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

func (h *crud[Req, Resp]) Create(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	var req Req
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Create(c.Request.Context(), storeID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func (h *crud[Req, Resp]) Get(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), storeID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *crud[Req, Resp]) Update(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req Req
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Update(c.Request.Context(), storeID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *crud[Req, Resp]) Delete(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), storeID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// BrandHandler handles brand management
type BrandHandler struct {
	crud[catalogapp.BrandRequest, catalogapp.BrandResponse]
}

// NewBrandHandler creates a new BrandHandler
func NewBrandHandler(brandService BrandService) *BrandHandler {
	return &BrandHandler{crud[catalogapp.BrandRequest, catalogapp.BrandResponse]{service: brandService}}
}

// CategoryHandler handles category management. Deleting a category with
// children answers 409.
type CategoryHandler struct {
	crud[catalogapp.CategoryRequest, catalogapp.CategoryResponse]
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService CategoryService) *CategoryHandler {
	return &CategoryHandler{crud[catalogapp.CategoryRequest, catalogapp.CategoryResponse]{service: categoryService}}
}

// AttributeHandler handles product attribute definitions
type AttributeHandler struct {
	BaseHandler
	attributeService AttributeService
}

// NewAttributeHandler creates a new AttributeHandler
func NewAttributeHandler(attributeService AttributeService) *AttributeHandler {
	return &AttributeHandler{attributeService: attributeService}
}

// List returns every attribute of the store
// GET /api/v1/stores/:storeId/attributes
func (h *AttributeHandler) List(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	attrs, err := h.attributeService.List(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, attrs)
}

// Create defines an attribute
// POST /api/v1/stores/:storeId/attributes
func (h *AttributeHandler) Create(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	var req catalogapp.AttributeRequest
	if !bindJSON(c, &req) {
		return
	}

	attr, err := h.attributeService.Create(c.Request.Context(), storeID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, attr)
}

// Get returns one attribute
// GET /api/v1/stores/:storeId/attributes/:id
func (h *AttributeHandler) Get(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	attr, err := h.attributeService.Get(c.Request.Context(), storeID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, attr)
}

// Update replaces an attribute's name and values
// PUT /api/v1/stores/:storeId/attributes/:id
func (h *AttributeHandler) Update(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.AttributeRequest
	if !bindJSON(c, &req) {
		return
	}

	attr, err := h.attributeService.Update(c.Request.Context(), storeID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, attr)
}

// Delete removes an attribute
// DELETE /api/v1/stores/:storeId/attributes/:id
func (h *AttributeHandler) Delete(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.attributeService.Delete(c.Request.Context(), storeID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
