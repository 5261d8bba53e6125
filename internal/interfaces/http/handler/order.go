package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// orderFilterKeys are the list filters of the order dashboard. from and to
// take RFC3339 timestamps or dates.
var orderFilterKeys = []string{"status", "payment_status", "from", "to"}

// OrderService is the part of orderapp.OrderService the dashboard uses
type OrderService interface {
	List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[orderapp.OrderResponse], error)
	Get(ctx context.Context, storeID, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	UpdateStatus(ctx context.Context, storeID, orderID, actorID uuid.UUID, req orderapp.UpdateStatusRequest) (*orderapp.OrderResponse, error)
	Cancel(ctx context.Context, storeID, orderID, actorID uuid.UUID, req orderapp.CancelOrderRequest) (*orderapp.OrderResponse, error)
	Refund(ctx context.Context, storeID, orderID, actorID uuid.UUID) (*orderapp.OrderResponse, error)
}

// OrderHandler handles order management
type OrderHandler struct {
	BaseHandler
	orderService OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// List returns a page of orders
// GET /api/v1/stores/:storeId/orders
func (h *OrderHandler) List(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	filter, ok := bindList(c, orderFilterKeys...)
	if !ok {
		return
	}

	page, err := h.orderService.List(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns one order with its items and payments
// GET /api/v1/stores/:storeId/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.Get(c.Request.Context(), storeID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// UpdateStatus moves an order along its fulfilment states
// PUT /api/v1/stores/:storeId/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	o, err := h.orderService.UpdateStatus(c.Request.Context(), storeID, id, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// Cancel cancels an order and restocks its items. The body is optional.
// POST /api/v1/stores/:storeId/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.CancelOrderRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	o, err := h.orderService.Cancel(c.Request.Context(), storeID, id, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// Refund marks a paid order refunded
// POST /api/v1/stores/:storeId/orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	storeID, actorID, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.Refund(c.Request.Context(), storeID, id, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}
