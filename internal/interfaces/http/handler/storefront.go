package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	orderapp "github.com/storefront/backend/internal/application/order"
	storeapp "github.com/storefront/backend/internal/application/store"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// StoreSlugParam is the path parameter naming the storefront
const StoreSlugParam = "storeSlug"

const storefrontKey = "storefront"

// StoreResolver finds an open store by slug
type StoreResolver interface {
	Resolve(ctx context.Context, slug string) (*store.Store, error)
}

// PublishedCatalog is the storefront view of the catalog
type PublishedCatalog interface {
	ListPublished(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[catalogapp.PublicProductResponse], error)
	GetPublishedBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*catalogapp.PublicProductResponse, error)
}

// CartService is the part of cartapp.CartService the storefront uses
type CartService interface {
	Create(ctx context.Context, storeID uuid.UUID, currency string) (*cartapp.CartResponse, error)
	Get(ctx context.Context, storeID uuid.UUID, token string) (*cartapp.CartResponse, error)
	AddItem(ctx context.Context, storeID uuid.UUID, token string, req cartapp.AddItemRequest) (*cartapp.CartResponse, error)
	UpdateItem(ctx context.Context, storeID uuid.UUID, token string, productID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.CartResponse, error)
	RemoveItem(ctx context.Context, storeID uuid.UUID, token string, productID uuid.UUID) (*cartapp.CartResponse, error)
	Clear(ctx context.Context, storeID uuid.UUID, token string) (*cartapp.CartResponse, error)
}

// CheckoutService places orders from carts
type CheckoutService interface {
	PlaceOrder(ctx context.Context, st *store.Store, req orderapp.PlaceOrderRequest) (*orderapp.PlaceOrderResult, error)
	GetConfirmation(ctx context.Context, storeID uuid.UUID, orderNumber, email string) (*orderapp.ConfirmationResponse, error)
}

// StorefrontDeps groups the services behind the public storefront
type StorefrontDeps struct {
	Stores     StoreResolver
	Products   PublishedCatalog
	Categories CategoryService
	Brands     BrandService
	Carts      CartService
	Checkout   CheckoutService
}

// StorefrontHandler serves the public shop API of every store
type StorefrontHandler struct {
	BaseHandler
	deps StorefrontDeps
}

// NewStorefrontHandler creates a new StorefrontHandler
func NewStorefrontHandler(deps StorefrontDeps) *StorefrontHandler {
	return &StorefrontHandler{deps: deps}
}

// ResolveStore loads the store named by :storeSlug. Unknown and
// suspended stores answer 404.
func (h *StorefrontHandler) ResolveStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := h.deps.Stores.Resolve(c.Request.Context(), c.Param(StoreSlugParam))
		if err != nil {
			h.HandleError(c, err)
			c.Abort()
			return
		}
		c.Set(storefrontKey, st)
		middleware.SetStoreScope(c, st.ID)
		c.Next()
	}
}

func (h *StorefrontHandler) store(c *gin.Context) (*store.Store, bool) {
	if v, ok := c.Get(storefrontKey); ok {
		if st, ok := v.(*store.Store); ok {
			return st, true
		}
	}
	h.NotFound(c, "Store not found")
	return nil, false
}

// Shop returns the public store profile
// GET /api/v1/shop/:storeSlug
func (h *StorefrontHandler) Shop(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	h.Success(c, storeapp.ToPublicStoreResponse(st))
}

// Products returns a page of published products
// GET /api/v1/shop/:storeSlug/products
func (h *StorefrontHandler) Products(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	filter, ok := bindList(c, "brand_id", "category_id")
	if !ok {
		return
	}

	page, err := h.deps.Products.ListPublished(c.Request.Context(), st.ID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Product returns a published product by slug
// GET /api/v1/shop/:storeSlug/products/:slug
func (h *StorefrontHandler) Product(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}

	product, err := h.deps.Products.GetPublishedBySlug(c.Request.Context(), st.ID, c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Categories returns a page of the store's categories
// GET /api/v1/shop/:storeSlug/categories
func (h *StorefrontHandler) Categories(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	filter, ok := bindList(c)
	if !ok {
		return
	}

	page, err := h.deps.Categories.List(c.Request.Context(), st.ID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Brands returns a page of the store's brands
// GET /api/v1/shop/:storeSlug/brands
func (h *StorefrontHandler) Brands(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	filter, ok := bindList(c)
	if !ok {
		return
	}

	page, err := h.deps.Brands.List(c.Request.Context(), st.ID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// CreateCart opens an anonymous cart in the store currency
// POST /api/v1/shop/:storeSlug/carts
func (h *StorefrontHandler) CreateCart(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}

	cart, err := h.deps.Carts.Create(c.Request.Context(), st.ID, st.Currency)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, cart)
}

// GetCart returns a cart priced at current prices
// GET /api/v1/shop/:storeSlug/carts/:token
func (h *StorefrontHandler) GetCart(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}

	cart, err := h.deps.Carts.Get(c.Request.Context(), st.ID, c.Param("token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// AddItem adds a product to the cart, merging with an existing line
// POST /api/v1/shop/:storeSlug/carts/:token/items
func (h *StorefrontHandler) AddItem(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	var req cartapp.AddItemRequest
	if !bindJSON(c, &req) {
		return
	}

	cart, err := h.deps.Carts.AddItem(c.Request.Context(), st.ID, c.Param("token"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// UpdateItem sets a line quantity; zero removes the line
// PUT /api/v1/shop/:storeSlug/carts/:token/items/:productId
func (h *StorefrontHandler) UpdateItem(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "productId")
	if !ok {
		return
	}
	var req cartapp.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	cart, err := h.deps.Carts.UpdateItem(c.Request.Context(), st.ID, c.Param("token"), productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// RemoveItem removes a line from the cart
// DELETE /api/v1/shop/:storeSlug/carts/:token/items/:productId
func (h *StorefrontHandler) RemoveItem(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "productId")
	if !ok {
		return
	}

	cart, err := h.deps.Carts.RemoveItem(c.Request.Context(), st.ID, c.Param("token"), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// ClearCart empties the cart
// DELETE /api/v1/shop/:storeSlug/carts/:token/items
func (h *StorefrontHandler) ClearCart(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}

	cart, err := h.deps.Carts.Clear(c.Request.Context(), st.ID, c.Param("token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// Checkout places an order from a cart and returns the payment redirect
// POST /api/v1/shop/:storeSlug/checkout
func (h *StorefrontHandler) Checkout(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	var req orderapp.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.deps.Checkout.PlaceOrder(c.Request.Context(), st, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// OrderConfirmation returns an order to the customer who placed it
// GET /api/v1/shop/:storeSlug/orders/:orderNumber?email=
func (h *StorefrontHandler) OrderConfirmation(c *gin.Context) {
	st, ok := h.store(c)
	if !ok {
		return
	}
	email := c.Query("email")
	if email == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "email is required")
		return
	}

	confirmation, err := h.deps.Checkout.GetConfirmation(c.Request.Context(), st.ID, c.Param("orderNumber"), email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, confirmation)
}
