package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrGatewayUnavailable is returned when the payment session could not be
// opened. The order is kept with a failed payment attempt.
var ErrGatewayUnavailable = shared.NewDomainError("PAYMENT_GATEWAY_UNAVAILABLE", "Payment provider is unavailable, please try again")

// CheckoutService turns carts into orders and hands the customer to a gateway
type CheckoutService struct {
	orderRepo   order.Repository
	paymentRepo order.PaymentRepository
	cartRepo    cart.Repository
	productRepo catalog.ProductRepository
	tx          shared.TxManager
	gateways    map[order.Provider]PaymentGateway
	metrics     *telemetry.BusinessMetrics
	logger      *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	orderRepo order.Repository,
	paymentRepo order.PaymentRepository,
	cartRepo cart.Repository,
	productRepo catalog.ProductRepository,
	tx shared.TxManager,
	gateways []PaymentGateway,
	metrics *telemetry.BusinessMetrics,
	logger *zap.Logger,
) *CheckoutService {
	byProvider := make(map[order.Provider]PaymentGateway, len(gateways))
	for _, g := range gateways {
		byProvider[g.Provider()] = g
	}
	return &CheckoutService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		tx:          tx,
		gateways:    byProvider,
		metrics:     metrics,
		logger:      logger,
	}
}

// PlaceOrder converts the cart into a pending order, reserves stock and
// opens a payment session. The cart is consumed.
func (s *CheckoutService) PlaceOrder(ctx context.Context, st *store.Store, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place_order",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, st.ID),
		telemetry.WithAttribute(telemetry.SpanAttrProvider, req.Provider),
	)
	result, err := s.placeOrder(ctx, st, req)
	if err == nil {
		telemetry.SetAttributes(span,
			telemetry.SpanAttrOrderNumber, result.Order.OrderNumber,
			telemetry.SpanAttrItemCount, len(result.Order.Items),
		)
	}
	telemetry.Finish(span, err)
	return result, err
}

func (s *CheckoutService) placeOrder(ctx context.Context, st *store.Store, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	provider := order.Provider(req.Provider)
	gateway, ok := s.gateways[provider]
	if !ok {
		return nil, shared.NewDomainError("UNSUPPORTED_PROVIDER", "Payment provider is not available")
	}

	var (
		placed  *order.Order
		payment *order.Payment
	)
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		c, err := s.cartRepo.FindByToken(txCtx, st.ID, req.CartToken)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("CART_NOT_FOUND", "Cart not found or expired")
			}
			return err
		}
		if c.IsEmpty() {
			return shared.NewDomainError("EMPTY_CART", "Cart is empty")
		}

		items, err := s.reserve(txCtx, st.ID, c)
		if err != nil {
			return err
		}

		number, err := s.orderRepo.NextOrderNumber(txCtx, st.ID, time.Now())
		if err != nil {
			return err
		}
		customer := order.Customer{Email: req.Email, Name: req.Name, Phone: req.Phone}
		o, err := order.NewOrder(st.ID, number, customer, req.ShippingAddress.toDomain(), req.BillingAddress.toDomain(), items, decimal.Zero, st.Currency)
		if err != nil {
			return err
		}
		o.PaymentProvider = provider
		if err := s.orderRepo.Save(txCtx, o); err != nil {
			return err
		}

		p, err := order.NewPayment(st.ID, o.ID, provider, o.Total, o.Currency)
		if err != nil {
			return err
		}
		if err := s.paymentRepo.Save(txCtx, p); err != nil {
			return err
		}
		if err := s.cartRepo.Delete(txCtx, st.ID, c.ID); err != nil {
			return err
		}
		placed, payment = o, p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderPlaced(ctx, st.ID, placed.Currency, placed.Total)
	s.logger.Info("Order placed",
		zap.String("store_id", st.ID.String()),
		zap.String("order_number", placed.OrderNumber),
		zap.String("provider", string(provider)),
		zap.String("total", placed.Total.StringFixed(2)),
	)

	redirectURL, ref, err := gateway.CreateSession(ctx, placed, payment)
	if err != nil {
		s.failSession(ctx, placed, payment, err)
		return nil, ErrGatewayUnavailable
	}
	payment.AttachProviderRef(ref)
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, err
	}
	placed.Payments = append(placed.Payments, *payment)

	return &PlaceOrderResult{Order: ToOrderResponse(placed), PaymentURL: redirectURL}, nil
}

// reserve re-prices the cart from current products and takes the stock
func (s *CheckoutService) reserve(ctx context.Context, storeID uuid.UUID, c *cart.Cart) ([]order.Item, error) {
	ids := make([]uuid.UUID, len(c.Items))
	for i, line := range c.Items {
		ids[i] = line.ProductID
	}
	products, err := s.productRepo.FindByIDsForStore(ctx, storeID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]order.Item, 0, len(c.Items))
	for _, line := range c.Items {
		product, ok := byID[line.ProductID]
		if !ok || !product.IsPurchasable() {
			return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "A product in the cart is no longer available")
		}
		if err := s.productRepo.DecrementStock(ctx, storeID, product.ID, line.Quantity); err != nil {
			return nil, err
		}
		item, err := order.NewItem(product.ID, product.Name, product.SKU, product.Price, line.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func (s *CheckoutService) failSession(ctx context.Context, o *order.Order, p *order.Payment, cause error) {
	s.logger.Error("Failed to open payment session",
		zap.String("order_number", o.OrderNumber),
		zap.String("provider", string(p.Provider)),
		zap.Error(cause),
	)
	if err := p.Fail("session_error", cause.Error()); err == nil {
		if err := s.paymentRepo.Save(ctx, p); err != nil {
			s.logger.Error("Failed to save payment attempt", zap.Error(err))
		}
	}
	o.MarkPaymentFailed(p.Provider)
	if err := s.orderRepo.Save(ctx, o); err != nil {
		s.logger.Error("Failed to save order", zap.Error(err))
	}
	s.metrics.RecordPayment(ctx, o.StoreID, string(p.Provider), telemetry.PaymentOutcomeFailed)
}

// GetConfirmation returns an order to the customer who placed it. A
// mismatched email is reported as not found.
func (s *CheckoutService) GetConfirmation(ctx context.Context, storeID uuid.UUID, orderNumber, email string) (*ConfirmationResponse, error) {
	o, err := s.orderRepo.FindByNumber(ctx, storeID, orderNumber)
	if err != nil {
		return nil, err
	}
	if !o.MatchesEmail(email) {
		return nil, shared.ErrNotFound
	}
	resp := ToConfirmationResponse(o)
	return &resp, nil
}
