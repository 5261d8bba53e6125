package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memOrders is an in-memory order.Repository
type memOrders struct {
	order.Repository
	mu      sync.Mutex
	orders  map[uuid.UUID]*order.Order
	seq     int
	saveErr error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]*order.Order)}
}

func (r *memOrders) FindByIDForStore(_ context.Context, storeID, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.StoreID != storeID {
		return nil, shared.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrders) FindByNumber(_ context.Context, storeID uuid.UUID, number string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.StoreID == storeID && o.OrderNumber == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrders) FindAllForStore(_ context.Context, storeID uuid.UUID, _ shared.Filter) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.StoreID == storeID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrders) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	all, _ := r.FindAllForStore(ctx, storeID, filter)
	return int64(len(all)), nil
}

func (r *memOrders) Save(_ context.Context, o *order.Order) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrders) NextOrderNumber(_ context.Context, _ uuid.UUID, at time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("ORD-%s-%05d", at.UTC().Format("20060102"), r.seq), nil
}

// memPayments is an in-memory order.PaymentRepository that also keeps the
// owning order's Payments slice in sync, as the preload does.
type memPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*order.Payment
	orders   *memOrders
}

func newMemPayments(orders *memOrders) *memPayments {
	return &memPayments{payments: make(map[uuid.UUID]*order.Payment), orders: orders}
}

func (r *memPayments) FindByID(_ context.Context, id uuid.UUID) (*order.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPayments) FindByProviderRef(_ context.Context, provider order.Provider, ref string) (*order.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.Provider == provider && p.Ref() == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memPayments) Save(_ context.Context, p *order.Payment) error {
	r.mu.Lock()
	cp := *p
	r.payments[p.ID] = &cp
	r.mu.Unlock()

	r.orders.mu.Lock()
	defer r.orders.mu.Unlock()
	o, ok := r.orders.orders[p.OrderID]
	if !ok {
		return nil
	}
	payments := make([]order.Payment, 0, len(o.Payments)+1)
	replaced := false
	for _, existing := range o.Payments {
		if existing.ID == p.ID {
			existing = cp
			replaced = true
		}
		payments = append(payments, existing)
	}
	if !replaced {
		payments = append(payments, cp)
	}
	o.Payments = payments
	return nil
}

// MockCartRepository is a mock implementation of cart.Repository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) FindByToken(ctx context.Context, storeID uuid.UUID, token string) (*cart.Cart, error) {
	args := m.Called(ctx, storeID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	return m.Called(ctx, storeID, id).Error(0)
}

// stockedProducts is a catalog.ProductRepository tracking stock in memory
type stockedProducts struct {
	catalog.ProductRepository
	products map[uuid.UUID]*catalog.Product
}

func (p *stockedProducts) FindByIDsForStore(_ context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if product, ok := p.products[id]; ok && product.StoreID == storeID {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (p *stockedProducts) DecrementStock(_ context.Context, storeID, id uuid.UUID, quantity int) error {
	product, ok := p.products[id]
	if !ok || product.StoreID != storeID {
		return shared.ErrNotFound
	}
	if product.Stock < quantity {
		return shared.ErrInsufficientStock
	}
	product.Stock -= quantity
	return nil
}

func (p *stockedProducts) IncrementStock(_ context.Context, storeID, id uuid.UUID, quantity int) error {
	product, ok := p.products[id]
	if !ok || product.StoreID != storeID {
		return shared.ErrNotFound
	}
	product.Stock += quantity
	return nil
}

type fakeGateway struct {
	provider order.Provider
	err      error
	calls    int
}

func (g *fakeGateway) Provider() order.Provider { return g.provider }

func (g *fakeGateway) CreateSession(_ context.Context, o *order.Order, p *order.Payment) (string, string, error) {
	g.calls++
	if g.err != nil {
		return "", "", g.err
	}
	return "https://pay.example.com/" + p.ID.String(), "sess_" + o.OrderNumber, nil
}

var errGatewayDown = errors.New("gateway down")

type inlineTx struct{}

func (inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingAudit struct {
	entries []auditapp.Entry
}

func (r *recordingAudit) Record(_ context.Context, e auditapp.Entry) {
	r.entries = append(r.entries, e)
}

func newActiveProduct(t *testing.T, storeID uuid.UUID, sku, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(storeID, sku, sku+" name", "", decimal.RequireFromString(price))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	require.NoError(t, p.Publish())
	return p
}

// seedOrder stores a PENDING order with a pending payment of the given
// total and returns both
func seedOrder(t *testing.T, orders *memOrders, payments *memPayments, storeID uuid.UUID, provider order.Provider, price string, qty int) (*order.Order, *order.Payment) {
	t.Helper()
	item, err := order.NewItem(uuid.New(), "Mug", "MUG-1", decimal.RequireFromString(price), qty)
	require.NoError(t, err)
	number, _ := orders.NextOrderNumber(context.Background(), storeID, time.Now())
	o, err := order.NewOrder(storeID, number,
		order.Customer{Email: "buyer@example.com", Name: "Buyer"},
		order.Address{Line1: "1 Main St", City: "Dhaka", Country: "BD"},
		order.Address{}, []order.Item{*item}, decimal.Zero, "USD")
	require.NoError(t, err)
	require.NoError(t, orders.Save(context.Background(), o))
	p, err := order.NewPayment(storeID, o.ID, provider, o.Total, "USD")
	require.NoError(t, err)
	p.AttachProviderRef("ref-" + number)
	require.NoError(t, payments.Save(context.Background(), p))
	return o, p
}
