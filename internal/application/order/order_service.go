package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderService is the dashboard side of orders
type OrderService struct {
	orderRepo   order.Repository
	paymentRepo order.PaymentRepository
	productRepo catalog.ProductRepository
	tx          shared.TxManager
	recorder    auditapp.Recorder
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo order.Repository,
	paymentRepo order.PaymentRepository,
	productRepo catalog.ProductRepository,
	tx shared.TxManager,
	recorder auditapp.Recorder,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		productRepo: productRepo,
		tx:          tx,
		recorder:    recorder,
		logger:      logger,
	}
}

// List returns a page of orders. Filters: status, payment_status, from, to.
// Search matches the order number or customer email.
func (s *OrderService) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[OrderResponse], error) {
	filter = filter.Normalize()
	orders, err := s.orderRepo.FindAllForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	total, err := s.orderRepo.CountForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Get returns one order with items and payments
func (s *OrderService) Get(ctx context.Context, storeID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByIDForStore(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateStatus moves the order forward. Marking PAID by hand is for
// offline payments.
func (s *OrderService) UpdateStatus(ctx context.Context, storeID, orderID, actorID uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByIDForStore(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	from := o.Status
	target := order.Status(req.Status)
	if target == order.StatusPaid {
		if o.Status != order.StatusPending {
			return nil, shared.NewDomainError("INVALID_STATE", "Cannot change order from "+o.Status.String()+" to PAID")
		}
		err = o.MarkPaid(o.PaymentProvider, time.Now())
	} else {
		err = o.TransitionTo(target)
	}
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}
	s.record(ctx, o, actorID, audit.ActionOrderStatusChanged, map[string]string{
		"from": string(from),
		"to":   string(o.Status),
	})
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Cancel cancels an unshipped order and returns its items to stock
func (s *OrderService) Cancel(ctx context.Context, storeID, orderID, actorID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	var cancelled *order.Order
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		o, err := s.orderRepo.FindByIDForStore(txCtx, storeID, orderID)
		if err != nil {
			return err
		}
		if err := o.Cancel(req.Reason); err != nil {
			return err
		}
		for _, item := range o.Items {
			if err := s.productRepo.IncrementStock(txCtx, storeID, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					// product deleted since the order was placed
					continue
				}
				return err
			}
		}
		if err := s.orderRepo.Save(txCtx, o); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, cancelled, actorID, audit.ActionOrderCancelled, map[string]string{"reason": cancelled.CancelReason})
	resp := ToOrderResponse(cancelled)
	return &resp, nil
}

// Refund marks the order refunded along with its captured payments. Money
// is returned through the provider's dashboard.
func (s *OrderService) Refund(ctx context.Context, storeID, orderID, actorID uuid.UUID) (*OrderResponse, error) {
	var refunded *order.Order
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		o, err := s.orderRepo.FindByIDForStore(txCtx, storeID, orderID)
		if err != nil {
			return err
		}
		if err := o.Refund(); err != nil {
			return err
		}
		if err := s.orderRepo.Save(txCtx, o); err != nil {
			return err
		}
		for i := range o.Payments {
			p := &o.Payments[i]
			if p.Status != order.PaymentSucceeded {
				continue
			}
			if err := p.Refund("manual_refund"); err != nil {
				return err
			}
			if err := s.paymentRepo.Save(txCtx, p); err != nil {
				return err
			}
		}
		refunded = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, refunded, actorID, audit.ActionOrderRefunded, nil)
	resp := ToOrderResponse(refunded)
	return &resp, nil
}

func (s *OrderService) record(ctx context.Context, o *order.Order, actorID uuid.UUID, action string, metadata map[string]string) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["order_number"] = o.OrderNumber
	s.recorder.Record(ctx, auditapp.Entry{
		StoreID:    o.StoreID,
		ActorID:    &actorID,
		Action:     action,
		EntityType: "order",
		EntityID:   o.ID.String(),
		Metadata:   metadata,
	})
}
