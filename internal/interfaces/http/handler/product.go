package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// MaxImportFileSize is the largest accepted product CSV
const MaxImportFileSize = 10 << 20

// productFilterKeys are the list filters of the product dashboard
var productFilterKeys = []string{"status", "brand_id", "category_id"}

// ProductService is the part of catalogapp.ProductService the dashboard uses
type ProductService interface {
	Create(ctx context.Context, storeID, actorID uuid.UUID, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	Get(ctx context.Context, storeID, productID uuid.UUID) (*catalogapp.ProductResponse, error)
	List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[catalogapp.ProductResponse], error)
	Update(ctx context.Context, storeID, productID, actorID uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	Delete(ctx context.Context, storeID, productID, actorID uuid.UUID) error
	Publish(ctx context.Context, storeID, productID, actorID uuid.UUID) (*catalogapp.ProductResponse, error)
	Archive(ctx context.Context, storeID, productID, actorID uuid.UUID) (*catalogapp.ProductResponse, error)
	AdjustStock(ctx context.Context, storeID, productID, actorID uuid.UUID, req catalogapp.AdjustStockRequest) (*catalogapp.ProductResponse, error)
}

// ProductImporter bulk imports products from CSV
type ProductImporter interface {
	Import(ctx context.Context, storeID, actorID uuid.UUID, reader io.Reader, mode importapp.Mode) (*importapp.Result, error)
}

// ProductHandler handles product management
type ProductHandler struct {
	BaseHandler
	productService ProductService
	importer       ProductImporter
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService ProductService, importer ProductImporter) *ProductHandler {
	return &ProductHandler{productService: productService, importer: importer}
}

// List returns a page of products, filterable by status, brand_id and category_id
// GET /api/v1/stores/:storeId/products
func (h *ProductHandler) List(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	filter, ok := bindList(c, productFilterKeys...)
	if !ok {
		return
	}

	page, err := h.productService.List(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Create adds a product
// POST /api/v1/stores/:storeId/products
func (h *ProductHandler) Create(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.Create(c.Request.Context(), storeID, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Get returns one product
// GET /api/v1/stores/:storeId/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), storeID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Update replaces the editable fields of a product
// PUT /api/v1/stores/:storeId/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.Update(c.Request.Context(), storeID, id, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete soft deletes a product
// DELETE /api/v1/stores/:storeId/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), storeID, id, actorID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Publish makes a product visible on the storefront
// POST /api/v1/stores/:storeId/products/:id/publish
func (h *ProductHandler) Publish(c *gin.Context) {
	h.transition(c, h.productService.Publish)
}

// Archive hides a product from the storefront
// POST /api/v1/stores/:storeId/products/:id/archive
func (h *ProductHandler) Archive(c *gin.Context) {
	h.transition(c, h.productService.Archive)
}

func (h *ProductHandler) transition(c *gin.Context, fn func(ctx context.Context, storeID, productID, actorID uuid.UUID) (*catalogapp.ProductResponse, error)) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	product, err := fn(c.Request.Context(), storeID, id, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// AdjustStock applies a signed delta to the stock
// POST /api/v1/stores/:storeId/products/:id/stock
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.AdjustStock(c.Request.Context(), storeID, id, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Import upserts products from a multipart CSV upload (field "file").
// mode is strict (default) or skip. A rejected strict import answers 422
// with the row errors in data.
// POST /api/v1/stores/:storeId/products/import
func (h *ProductHandler) Import(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.AbortRequestTooLarge(c)
			return
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "A CSV file is required in the 'file' field")
		return
	}
	if fileHeader.Size > MaxImportFileSize {
		middleware.AbortRequestTooLarge(c)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	mode := importapp.Mode(c.DefaultQuery("mode", string(importapp.ModeStrict)))
	result, err := h.importer.Import(c.Request.Context(), storeID, actorID, file, mode)
	if errors.Is(err, importapp.ErrImportRejected) && result != nil {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeImportRejected, importapp.ErrImportRejected.Message, getRequestID(c))
		resp.Data = result
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
