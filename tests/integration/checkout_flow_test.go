//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	cartapp "github.com/storefront/backend/internal/application/cart"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// redirectGateway hands out a fixed payment page and a fresh provider ref
type redirectGateway struct{}

func (redirectGateway) Provider() order.Provider { return order.ProviderStripe }

func (redirectGateway) CreateSession(_ context.Context, o *order.Order, _ *order.Payment) (string, string, error) {
	return "https://pay.example.com/" + o.OrderNumber, "pi_" + uuid.NewString()[:12], nil
}

type checkoutFixture struct {
	db       *TestDB
	shop     *store.Store
	products *persistence.GormProductRepository
	orders   *persistence.GormOrderRepository
	carts    *cartapp.CartService
	checkout *orderapp.CheckoutService
	payments *orderapp.PaymentService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := NewTestDB(t)
	log := zap.NewNop()

	storeID := db.CreateTestStore("acme", "USD")
	shop, err := persistence.NewGormStoreRepository(db.DB).FindByID(context.Background(), storeID)
	require.NoError(t, err)

	tx := persistence.NewGormTxManager(db.DB)
	products := persistence.NewGormProductRepository(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB)
	payments := persistence.NewGormPaymentRepository(db.DB)
	carts := persistence.NewGormCartRepository(db.DB)

	return &checkoutFixture{
		db:       db,
		shop:     shop,
		products: products,
		orders:   orders,
		carts:    cartapp.NewCartService(carts, products, log),
		checkout: orderapp.NewCheckoutService(orders, payments, carts, products, tx,
			[]orderapp.PaymentGateway{redirectGateway{}}, nil, log),
		payments: orderapp.NewPaymentService(orders, payments, tx, nil, log),
	}
}

func (f *checkoutFixture) publishedProduct(t *testing.T, sku string, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(f.shop.ID, sku, "Product "+sku, "", decimal.RequireFromString(price))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	require.NoError(t, p.Publish())
	require.NoError(t, f.products.Save(context.Background(), p))
	return p
}

func (f *checkoutFixture) cartWith(t *testing.T, productID uuid.UUID, qty int) string {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Create(ctx, f.shop.ID, f.shop.Currency)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, f.shop.ID, c.Token, cartapp.AddItemRequest{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	return c.Token
}

func placeOrderRequest(token string) orderapp.PlaceOrderRequest {
	return orderapp.PlaceOrderRequest{
		CartToken: token,
		Email:     "buyer@example.com",
		Name:      "Buyer",
		ShippingAddress: orderapp.AddressInput{
			Line1:   "1 Main St",
			City:    "Springfield",
			Country: "US",
		},
		Provider: string(order.ProviderStripe),
	}
}

func TestCheckout_PlaceAndPay(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	f := newCheckoutFixture(t)

	mug := f.publishedProduct(t, "MUG-1", "12.50", 5)
	token := f.cartWith(t, mug.ID, 2)

	result, err := f.checkout.PlaceOrder(ctx, f.shop, placeOrderRequest(token))
	require.NoError(t, err)
	assert.Contains(t, result.PaymentURL, result.Order.OrderNumber)
	assert.True(t, result.Order.Total.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, string(order.PaymentStatusUnpaid), result.Order.PaymentStatus)
	require.Len(t, result.Order.Payments, 1)

	// stock is taken at checkout and the cart is gone
	reloaded, err := f.products.FindByIDForStore(ctx, f.shop.ID, mug.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Stock)
	assert.Equal(t, int64(0), f.db.CountRows("carts", "token = ?", token))

	capture := orderapp.Capture{
		PaymentLookup: orderapp.PaymentLookup{
			Provider:  order.ProviderStripe,
			PaymentID: result.Order.Payments[0].ID,
		},
		Amount:    decimal.RequireFromString("25.00"),
		Currency:  "usd",
		RawStatus: "succeeded",
	}
	require.NoError(t, f.payments.MarkPaid(ctx, capture))
	// a replayed capture is a no-op
	require.NoError(t, f.payments.MarkPaid(ctx, capture))

	confirmation, err := f.checkout.GetConfirmation(ctx, f.shop.ID, result.Order.OrderNumber, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, string(order.PaymentStatusPaid), confirmation.PaymentStatus)

	_, err = f.checkout.GetConfirmation(ctx, f.shop.ID, result.Order.OrderNumber, "someone@else.com")
	assert.Error(t, err)
}

func TestCheckout_AmountMismatchFailsPayment(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	f := newCheckoutFixture(t)

	tee := f.publishedProduct(t, "TEE-1", "20", 1)
	result, err := f.checkout.PlaceOrder(ctx, f.shop, placeOrderRequest(f.cartWith(t, tee.ID, 1)))
	require.NoError(t, err)

	require.NoError(t, f.payments.MarkPaid(ctx, orderapp.Capture{
		PaymentLookup: orderapp.PaymentLookup{PaymentID: result.Order.Payments[0].ID},
		Amount:        decimal.RequireFromString("2.00"),
		Currency:      "USD",
		RawStatus:     "succeeded",
	}))

	o, err := f.orders.FindByIDForStore(ctx, f.shop.ID, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusFailed, o.PaymentStatus)
	assert.NotEqual(t, order.StatusPaid, o.Status)
}

func TestCheckout_ConcurrentBuyersCannotOversell(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	f := newCheckoutFixture(t)

	last := f.publishedProduct(t, "LAST-1", "9.99", 1)
	const buyers = 4
	tokens := make([]string, buyers)
	for i := range tokens {
		tokens[i] = f.cartWith(t, last.ID, 1)
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		placed     int
		outOfStock int
	)
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			_, err := f.checkout.PlaceOrder(ctx, f.shop, placeOrderRequest(token))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, shared.ErrInsufficientStock):
				outOfStock++
			default:
				t.Errorf("unexpected checkout error: %v", err)
			}
		}(token)
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, buyers-1, outOfStock)

	reloaded, err := f.products.FindByIDForStore(ctx, f.shop.ID, last.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Stock)
	assert.Equal(t, int64(1), f.db.CountRows("orders", "store_id = ?", f.shop.ID))
}

func TestCheckout_ConcurrentOrdersGetDistinctNumbers(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	f := newCheckoutFixture(t)

	const buyers = 6
	tokens := make([]string, buyers)
	for i := range tokens {
		p := f.publishedProduct(t, fmt.Sprintf("ITEM-%d", i), "5.00", 3)
		tokens[i] = f.cartWith(t, p.ID, 1)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			result, err := f.checkout.PlaceOrder(ctx, f.shop, placeOrderRequest(token))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[result.Order.OrderNumber] = true
			mu.Unlock()
		}(token)
	}
	wg.Wait()

	assert.Len(t, numbers, buyers)
	assert.Equal(t, int64(buyers), f.db.CountRows("orders", "store_id = ?", f.shop.ID))
}
