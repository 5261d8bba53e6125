package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// MaxWebhookBodySize is the largest accepted webhook payload
const MaxWebhookBodySize = 64 << 10

// StripeSignatureHeader carries the Stripe webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// StripeWebhookProcessor processes verified Stripe events
type StripeWebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*paymentapp.WebhookResult, error)
}

// SSLCommerzIPNProcessor processes SSLCommerz IPN posts
type SSLCommerzIPNProcessor interface {
	ProcessIPN(ctx context.Context, form url.Values) (*paymentapp.WebhookResult, error)
}

// WebhookHandler receives payment provider callbacks. Failures other than
// a bad signature answer 500 so the provider retries.
type WebhookHandler struct {
	BaseHandler
	stripe     StripeWebhookProcessor
	sslcommerz SSLCommerzIPNProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(stripe StripeWebhookProcessor, sslcommerz SSLCommerzIPNProcessor) *WebhookHandler {
	return &WebhookHandler{stripe: stripe, sslcommerz: sslcommerz}
}

// Stripe handles Stripe events
// POST /webhooks/stripe
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, ok := h.readBody(c)
	if !ok {
		return
	}
	signature := c.GetHeader(StripeSignatureHeader)
	if signature == "" {
		h.Unauthorized(c, "Missing Stripe-Signature header")
		return
	}

	result, err := h.stripe.ProcessWebhook(c.Request.Context(), payload, signature)
	h.respond(c, "stripe", result, err)
}

// SSLCommerz handles SSLCommerz instant payment notifications
// POST /webhooks/sslcommerz
func (h *WebhookHandler) SSLCommerz(c *gin.Context) {
	if c.Request.ContentLength > MaxWebhookBodySize {
		middleware.AbortRequestTooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodySize)
	if err := c.Request.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.AbortRequestTooLarge(c)
			return
		}
		h.BadRequest(c, "Invalid form body")
		return
	}

	result, err := h.sslcommerz.ProcessIPN(c.Request.Context(), c.Request.PostForm)
	h.respond(c, "sslcommerz", result, err)
}

func (h *WebhookHandler) readBody(c *gin.Context) ([]byte, bool) {
	if c.Request.ContentLength > MaxWebhookBodySize {
		middleware.AbortRequestTooLarge(c)
		return nil, false
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxWebhookBodySize+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.AbortRequestTooLarge(c)
			return nil, false
		}
		h.BadRequest(c, "Failed to read request body")
		return nil, false
	}
	if len(payload) > MaxWebhookBodySize {
		middleware.AbortRequestTooLarge(c)
		return nil, false
	}
	return payload, true
}

func (h *WebhookHandler) respond(c *gin.Context, provider string, result *paymentapp.WebhookResult, err error) {
	if errors.Is(err, paymentapp.ErrInvalidSignature) {
		h.HandleError(c, err)
		return
	}
	if err != nil {
		logger.GetGinLogger(c).Error("Webhook processing failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "Webhook processing failed", getRequestID(c))
		resp.Data = result
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	h.Success(c, result)
}
