package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/storefront/backend/internal/application/billing"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// SubscriptionService is the part of billingapp.SubscriptionService the handler uses
type SubscriptionService interface {
	CreateCheckout(ctx context.Context, storeID uuid.UUID, req billingapp.CreateCheckoutRequest, email string) (*billingapp.CheckoutResponse, error)
	Get(ctx context.Context, storeID uuid.UUID) (*billingapp.SubscriptionResponse, error)
	Cancel(ctx context.Context, storeID uuid.UUID) (*billingapp.SubscriptionResponse, error)
}

// SubscriptionHandler handles the store's plan subscription
type SubscriptionHandler struct {
	BaseHandler
	subscriptionService SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscriptionService SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// Get returns the store's plan and subscription status
// GET /api/v1/stores/:storeId/subscription
func (h *SubscriptionHandler) Get(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Get(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Checkout starts a Stripe subscription checkout for a paid plan
// POST /api/v1/stores/:storeId/subscription/checkout
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	var req billingapp.CreateCheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	var email string
	if claims := middleware.GetJWTClaims(c); claims != nil {
		email = claims.Email
	}

	session, err := h.subscriptionService.CreateCheckout(c.Request.Context(), storeID, req, email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session)
}

// Cancel cancels the subscription at the end of the current period
// POST /api/v1/stores/:storeId/subscription/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Cancel(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}
