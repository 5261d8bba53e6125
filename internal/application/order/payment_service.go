package order

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentLookup identifies the payment a gateway notification is about.
// PaymentID wins when set; otherwise Provider and Ref are used.
type PaymentLookup struct {
	Provider  order.Provider
	Ref       string
	PaymentID uuid.UUID
}

// Capture is a successful payment notification
type Capture struct {
	PaymentLookup
	Amount    decimal.Decimal
	Currency  string
	RawStatus string
}

// PaymentService applies gateway outcomes to payments and orders
type PaymentService struct {
	orderRepo   order.Repository
	paymentRepo order.PaymentRepository
	tx          shared.TxManager
	metrics     *telemetry.BusinessMetrics
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	orderRepo order.Repository,
	paymentRepo order.PaymentRepository,
	tx shared.TxManager,
	metrics *telemetry.BusinessMetrics,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		tx:          tx,
		metrics:     metrics,
		logger:      logger,
	}
}

// MarkPaid captures the payment and marks the order PAID. Repeats are
// no-ops. An amount or currency mismatch fails the payment and leaves the
// order pending.
func (s *PaymentService) MarkPaid(ctx context.Context, c Capture) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "mark_paid",
		telemetry.WithAttribute(telemetry.SpanAttrProvider, string(c.Provider)),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, c.Amount.String()),
	)
	if c.PaymentID != uuid.Nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, c.PaymentID)
	}
	err := s.markPaid(ctx, c)
	telemetry.Finish(span, err)
	return err
}

func (s *PaymentService) markPaid(ctx context.Context, c Capture) error {
	var outcome telemetry.PaymentOutcome
	var storeID uuid.UUID
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		p, o, err := s.resolve(txCtx, c.PaymentLookup)
		if err != nil {
			return err
		}
		storeID = o.StoreID
		if p.Status == order.PaymentSucceeded && o.PaymentStatus == order.PaymentStatusPaid {
			return nil
		}

		if !o.AmountMatches(c.Amount) || (c.Currency != "" && !strings.EqualFold(c.Currency, o.Currency)) {
			s.logger.Warn("Payment amount does not match order",
				zap.String("order_number", o.OrderNumber),
				zap.String("expected", o.Total.StringFixed(2)+" "+o.Currency),
				zap.String("received", c.Amount.StringFixed(2)+" "+c.Currency),
			)
			if err := p.Fail(c.RawStatus, "amount mismatch"); err != nil {
				return nil
			}
			o.MarkPaymentFailed(p.Provider)
			outcome = telemetry.PaymentOutcomeFailed
			return s.save(txCtx, o, p)
		}

		if err := p.Succeed(c.RawStatus); err != nil {
			return err
		}
		if o.Status == order.StatusCancelled || o.Status == order.StatusRefunded {
			// the money is captured but the order is closed; staff refunds it
			s.logger.Warn("Payment captured for a closed order",
				zap.String("order_number", o.OrderNumber),
				zap.String("status", o.Status.String()),
			)
			outcome = telemetry.PaymentOutcomeCaptured
			return s.paymentRepo.Save(txCtx, p)
		}
		if err := o.MarkPaid(p.Provider, time.Now()); err != nil {
			return err
		}
		outcome = telemetry.PaymentOutcomeCaptured
		return s.save(txCtx, o, p)
	})
	if err != nil {
		return err
	}
	if outcome != "" {
		s.metrics.RecordPayment(ctx, storeID, string(c.Provider), outcome)
	}
	return nil
}

// MarkFailed records a failed or abandoned attempt. Settled payments are
// left alone.
func (s *PaymentService) MarkFailed(ctx context.Context, lookup PaymentLookup, rawStatus, note string) error {
	var storeID uuid.UUID
	changed := false
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		p, o, err := s.resolve(txCtx, lookup)
		if err != nil {
			return err
		}
		storeID = o.StoreID
		if p.Status == order.PaymentFailed {
			return nil
		}
		if err := p.Fail(rawStatus, note); err != nil {
			s.logger.Info("Ignoring failure for settled payment",
				zap.String("payment_id", p.ID.String()),
				zap.String("status", string(p.Status)),
			)
			return nil
		}
		o.MarkPaymentFailed(p.Provider)
		changed = true
		return s.save(txCtx, o, p)
	})
	if err != nil {
		return err
	}
	if changed {
		s.metrics.RecordPayment(ctx, storeID, string(lookup.Provider), telemetry.PaymentOutcomeFailed)
	}
	return nil
}

// MarkRefunded records a refund issued at the provider
func (s *PaymentService) MarkRefunded(ctx context.Context, lookup PaymentLookup, rawStatus string) error {
	var storeID uuid.UUID
	changed := false
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		p, o, err := s.resolve(txCtx, lookup)
		if err != nil {
			return err
		}
		storeID = o.StoreID
		if p.Status == order.PaymentRefunded {
			return nil
		}
		if err := p.Refund(rawStatus); err != nil {
			return err
		}
		if o.Status.CanTransitionTo(order.StatusRefunded) {
			if err := o.Refund(); err != nil {
				return err
			}
		} else {
			s.logger.Warn("Refund received for order that cannot be refunded",
				zap.String("order_number", o.OrderNumber),
				zap.String("status", o.Status.String()),
			)
		}
		changed = true
		return s.save(txCtx, o, p)
	})
	if err != nil {
		return err
	}
	if changed {
		s.metrics.RecordPayment(ctx, storeID, string(lookup.Provider), telemetry.PaymentOutcomeRefunded)
	}
	return nil
}

func (s *PaymentService) resolve(ctx context.Context, lookup PaymentLookup) (*order.Payment, *order.Order, error) {
	var (
		p   *order.Payment
		err error
	)
	if lookup.PaymentID != uuid.Nil {
		p, err = s.paymentRepo.FindByID(ctx, lookup.PaymentID)
	} else {
		p, err = s.paymentRepo.FindByProviderRef(ctx, lookup.Provider, lookup.Ref)
	}
	if err != nil {
		return nil, nil, err
	}
	if lookup.Provider != "" && p.Provider != lookup.Provider {
		return nil, nil, shared.ErrNotFound
	}
	o, err := s.orderRepo.FindByIDForStore(ctx, p.StoreID, p.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return p, o, nil
}

func (s *PaymentService) save(ctx context.Context, o *order.Order, p *order.Payment) error {
	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return err
	}
	return s.orderRepo.Save(ctx, o)
}
