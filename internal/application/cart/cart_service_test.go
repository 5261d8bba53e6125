package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

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

// productLookup is a catalog.ProductRepository backed by a map; only the
// lookups used by the cart are implemented.
type productLookup struct {
	catalog.ProductRepository
	products map[uuid.UUID]*catalog.Product
}

func (p *productLookup) FindByIDForStore(_ context.Context, storeID, id uuid.UUID) (*catalog.Product, error) {
	product, ok := p.products[id]
	if !ok || product.StoreID != storeID {
		return nil, shared.ErrNotFound
	}
	return product, nil
}

func (p *productLookup) FindByIDsForStore(_ context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if product, ok := p.products[id]; ok && product.StoreID == storeID {
			out = append(out, *product)
		}
	}
	return out, nil
}

type purgerFunc func(ctx context.Context, now time.Time) (int64, error)

func (f purgerFunc) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

func newActiveProduct(t *testing.T, storeID uuid.UUID, sku string, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(storeID, sku, sku+" name", "", decimal.RequireFromString(price))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	require.NoError(t, p.Publish())
	return p
}

func newCartFixture(t *testing.T, products ...*catalog.Product) (*CartService, *MockCartRepository, *cart.Cart) {
	t.Helper()
	storeID := uuid.New()
	if len(products) > 0 {
		storeID = products[0].StoreID
	}
	c, err := cart.NewCart(storeID, "USD")
	require.NoError(t, err)

	lookup := &productLookup{products: map[uuid.UUID]*catalog.Product{}}
	for _, p := range products {
		lookup.products[p.ID] = p
	}
	repo := new(MockCartRepository)
	repo.On("FindByToken", mock.Anything, storeID, c.Token).Return(c, nil)
	repo.On("Save", mock.Anything, c).Return(nil)
	return NewCartService(repo, lookup, zap.NewNop()), repo, c
}

func TestCartService_Create(t *testing.T) {
	repo := new(MockCartRepository)
	svc := NewCartService(repo, &productLookup{}, zap.NewNop())
	repo.On("Save", mock.Anything, mock.AnythingOfType("*cart.Cart")).Return(nil)

	resp, err := svc.Create(context.Background(), uuid.New(), "BDT")

	require.NoError(t, err)
	assert.Len(t, resp.Token, 48)
	assert.Equal(t, "BDT", resp.Currency)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Subtotal.IsZero())
}

func TestCartService_AddItem_MergesAndComputesSubtotal(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	tee := newActiveProduct(t, storeID, "TEE", "12.50", 5)
	mug := newActiveProduct(t, storeID, "MUG", "8", 10)
	svc, _, c := newCartFixture(t, tee, mug)

	_, err := svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: tee.ID, Quantity: 2})
	require.NoError(t, err)
	resp, err := svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, 3, resp.Items[0].Quantity)
	assert.Equal(t, "TEE", resp.Items[0].SKU)
	assert.True(t, resp.Items[0].Available)
	assert.Equal(t, 4, resp.ItemCount)
	assert.True(t, resp.Subtotal.Equal(decimal.RequireFromString("45.50")), resp.Subtotal.String())
}

func TestCartService_AddItem_RefreshesPrice(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	tee := newActiveProduct(t, storeID, "TEE", "10", 5)
	svc, _, c := newCartFixture(t, tee)

	_, err := svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, tee.SetPricing(decimal.NewFromInt(11), nil))
	resp, err := svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)

	assert.True(t, resp.Items[0].UnitPrice.Equal(decimal.NewFromInt(11)))
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(22)))
}

func TestCartService_AddItem_Rejections(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	tee := newActiveProduct(t, storeID, "TEE", "10", 2)
	draft, err := catalog.NewProduct(storeID, "DRAFT", "Draft", "", decimal.NewFromInt(1))
	require.NoError(t, err)
	draft.Stock = 10
	svc, repo, c := newCartFixture(t, tee, draft)

	t.Run("beyond stock", func(t *testing.T) {
		_, err := svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: tee.ID, Quantity: 3})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("draft product", func(t *testing.T) {
		_, err := svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: draft.ID, Quantity: 1})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PRODUCT_UNAVAILABLE", domainErr.Code)
	})

	t.Run("product of another store", func(t *testing.T) {
		_, err := svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: uuid.New(), Quantity: 1})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartService_UpdateItem_ZeroRemoves(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	tee := newActiveProduct(t, storeID, "TEE", "10", 5)
	svc, _, c := newCartFixture(t, tee)

	_, err := svc.AddItem(ctx, storeID, c.Token, AddItemRequest{ProductID: tee.ID, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.UpdateItem(ctx, storeID, c.Token, tee.ID, UpdateItemRequest{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Items[0].Quantity)

	resp, err = svc.UpdateItem(ctx, storeID, c.Token, tee.ID, UpdateItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Subtotal.IsZero())
}

func TestCartService_Get_Expired(t *testing.T) {
	svc, _, c := newCartFixture(t)
	c.ExpiresAt = time.Now().Add(-time.Minute)

	_, err := svc.Get(context.Background(), c.StoreID, c.Token)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCartService_Get_UnknownToken(t *testing.T) {
	repo := new(MockCartRepository)
	svc := NewCartService(repo, &productLookup{}, zap.NewNop())
	storeID := uuid.New()
	repo.On("FindByToken", mock.Anything, storeID, "nope").Return(nil, shared.ErrNotFound)

	_, err := svc.Get(context.Background(), storeID, "nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPurgeExpired(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	purger := purgerFunc(func(context.Context, time.Time) (int64, error) { return 3, nil })

	require.NoError(t, PurgeExpired(context.Background(), purger, zap.New(core)))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["count"])
}
