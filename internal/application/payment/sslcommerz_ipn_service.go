package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/idempotency"
	"go.uber.org/zap"
)

// Idempotency scopes for SSLCommerz IPNs
const (
	SourceSSLCommerz = "sslcommerz"
	EntityIPN        = "ipn"
)

// SSLCommerzIPNService handles SSLCommerz instant payment notifications
type SSLCommerzIPNService struct {
	verifier       SSLCommerzVerifier
	payments       PaymentUpdater
	guard          *idempotency.Guard
	validateRemote bool
	logger         *zap.Logger
}

// NewSSLCommerzIPNService creates a new SSLCommerzIPNService. With
// validateRemote set, successful IPNs are confirmed against the validation
// API and its amount is trusted over the form's.
func NewSSLCommerzIPNService(verifier SSLCommerzVerifier, payments PaymentUpdater, guard *idempotency.Guard, validateRemote bool, logger *zap.Logger) *SSLCommerzIPNService {
	return &SSLCommerzIPNService{
		verifier:       verifier,
		payments:       payments,
		guard:          guard,
		validateRemote: validateRemote,
		logger:         logger,
	}
}

// ProcessIPN verifies and processes an IPN form post. The idempotency id is
// tran_id:status:val_id so a later status for the same transaction still runs.
func (s *SSLCommerzIPNService) ProcessIPN(ctx context.Context, form url.Values) (*WebhookResult, error) {
	if !s.verifier.VerifySignature(form) {
		s.logger.Warn("Failed to verify IPN signature",
			zap.String("tran_id", form.Get("tran_id")))
		return nil, ErrInvalidSignature
	}

	tranID := form.Get("tran_id")
	status := strings.ToUpper(form.Get("status"))
	valID := form.Get("val_id")
	eventID := tranID + ":" + status + ":" + valID

	s.logger.Info("Processing SSLCommerz IPN",
		zap.String("tran_id", tranID),
		zap.String("status", status))

	result := &WebhookResult{EventID: eventID, EventType: status}
	if tranID == "" {
		result.Message = "Missing tran_id"
		return result, nil
	}

	duplicate, err := s.guard.Run(ctx, SourceSSLCommerz, EntityIPN, eventID, func(ctx context.Context) error {
		return s.dispatch(ctx, form, status, result)
	})
	if err != nil {
		s.logger.Error("Failed to process IPN",
			zap.String("tran_id", tranID),
			zap.String("status", status),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}
	if duplicate {
		result.Duplicate = true
		result.Message = "Notification already processed"
	}
	return result, nil
}

func (s *SSLCommerzIPNService) dispatch(ctx context.Context, form url.Values, status string, result *WebhookResult) error {
	lookup := orderapp.PaymentLookup{Provider: order.ProviderSSLCommerz, Ref: form.Get("tran_id")}
	result.Processed = true

	var err error
	switch status {
	case "VALID", "VALIDATED":
		err = s.handleValid(ctx, form, lookup, status)
	case "FAILED", "CANCELLED", "UNATTEMPTED", "EXPIRED":
		note := form.Get("error")
		if note == "" {
			note = "Payment " + strings.ToLower(status)
		}
		err = s.payments.MarkFailed(ctx, lookup, status, note)
	default:
		result.Processed = false
		result.Message = "Status not handled"
	}
	if err != nil && isNotFound(err) {
		s.logger.Warn("IPN references an unknown payment",
			zap.String("tran_id", lookup.Ref))
		result.Processed = false
		result.Message = "Payment not found"
		return nil
	}
	return err
}

func (s *SSLCommerzIPNService) handleValid(ctx context.Context, form url.Values, lookup orderapp.PaymentLookup, status string) error {
	if s.validateRemote {
		v, err := s.verifier.ValidateTransaction(ctx, form.Get("val_id"))
		if err != nil {
			return err
		}
		if !v.IsValid() || v.TranID != lookup.Ref {
			s.logger.Warn("SSLCommerz validation rejected the transaction",
				zap.String("tran_id", lookup.Ref),
				zap.String("validated_tran_id", v.TranID),
				zap.String("status", v.Status))
			return s.payments.MarkFailed(ctx, lookup, v.Status, "Validation rejected the transaction")
		}
		return s.payments.MarkPaid(ctx, orderapp.Capture{
			PaymentLookup: lookup,
			Amount:        v.Amount,
			Currency:      v.Currency,
			RawStatus:     v.Status,
		})
	}

	amount, currency, err := formAmount(form)
	if err != nil {
		s.logger.Warn("IPN carries an unreadable amount",
			zap.String("tran_id", lookup.Ref),
			zap.Error(err))
		return s.payments.MarkFailed(ctx, lookup, status, "Unreadable amount")
	}
	return s.payments.MarkPaid(ctx, orderapp.Capture{
		PaymentLookup: lookup,
		Amount:        amount,
		Currency:      currency,
		RawStatus:     status,
	})
}

// formAmount prefers the amount in the order currency (currency_amount,
// currency_type) over the settled BDT amount
func formAmount(form url.Values) (decimal.Decimal, string, error) {
	raw, currency := form.Get("currency_amount"), form.Get("currency_type")
	if raw == "" {
		raw, currency = form.Get("amount"), form.Get("currency")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("invalid IPN amount %q: %w", raw, err)
	}
	return amount, currency, nil
}
