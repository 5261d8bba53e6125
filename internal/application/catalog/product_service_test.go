package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type productFixture struct {
	svc        *ProductService
	products   *MockProductRepository
	brands     *MockBrandRepository
	categories *MockCategoryRepository
	attributes *MockAttributeRepository
	audit      *recordingAudit
}

func newProductFixture() *productFixture {
	f := &productFixture{
		products:   new(MockProductRepository),
		brands:     new(MockBrandRepository),
		categories: new(MockCategoryRepository),
		attributes: new(MockAttributeRepository),
		audit:      &recordingAudit{},
	}
	f.svc = NewProductService(f.products, f.brands, f.categories, f.attributes, f.audit, zap.NewNop())
	return f
}

func (f *productFixture) allowUnique() {
	f.products.On("ExistsBySKU", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	f.products.On("ExistsBySlug", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	actorID := uuid.New()

	t.Run("creates with brand and attributes", func(t *testing.T) {
		f := newProductFixture()
		brand, _ := catalog.NewBrand(storeID, "Acme", "", "")
		size, _ := catalog.NewAttribute(storeID, "Size", []string{"S", "M", "L"})
		compareAt := decimal.NewFromInt(30)

		f.allowUnique()
		f.brands.On("FindByIDForStore", ctx, storeID, brand.ID).Return(brand, nil)
		f.attributes.On("FindAllForStore", ctx, storeID).Return([]catalog.Attribute{*size}, nil)
		f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		resp, err := f.svc.Create(ctx, storeID, actorID, CreateProductRequest{
			SKU:            "tee-001",
			Name:           "Basic Tee",
			Price:          decimal.RequireFromString("19.99"),
			CompareAtPrice: &compareAt,
			Stock:          10,
			BrandID:        &brand.ID,
			Attributes:     map[string]string{"Size": "M"},
		})

		require.NoError(t, err)
		assert.Equal(t, "TEE-001", resp.SKU)
		assert.Equal(t, "basic-tee", resp.Slug)
		assert.Equal(t, "DRAFT", resp.Status)
		assert.Equal(t, 10, resp.Stock)
		assert.Equal(t, 1, resp.Version)
		assert.Equal(t, "M", resp.Attributes["Size"])
		require.Len(t, f.audit.entries, 1)
		assert.Equal(t, audit.ActionProductCreated, f.audit.entries[0].Action)
		assert.Equal(t, actorID, *f.audit.entries[0].ActorID)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		f := newProductFixture()
		f.products.On("ExistsBySKU", ctx, storeID, "TEE-001", (*uuid.UUID)(nil)).Return(true, nil)

		_, err := f.svc.Create(ctx, storeID, actorID, CreateProductRequest{SKU: "tee-001", Name: "Tee", Price: decimal.NewFromInt(1)})

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("brand from another store", func(t *testing.T) {
		f := newProductFixture()
		brandID := uuid.New()
		f.brands.On("FindByIDForStore", ctx, storeID, brandID).Return(nil, shared.ErrNotFound)

		_, err := f.svc.Create(ctx, storeID, actorID, CreateProductRequest{SKU: "A1", Name: "A", Price: decimal.NewFromInt(1), BrandID: &brandID})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_BRAND", domainErr.Code)
	})

	t.Run("attribute value not allowed", func(t *testing.T) {
		f := newProductFixture()
		size, _ := catalog.NewAttribute(storeID, "Size", []string{"S", "M"})
		f.attributes.On("FindAllForStore", ctx, storeID).Return([]catalog.Attribute{*size}, nil)

		_, err := f.svc.Create(ctx, storeID, actorID, CreateProductRequest{
			SKU: "A1", Name: "A", Price: decimal.NewFromInt(1),
			Attributes: map[string]string{"Size": "XXL"},
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ATTRIBUTE_VALUE", domainErr.Code)
	})

	t.Run("compare-at below price", func(t *testing.T) {
		f := newProductFixture()
		low := decimal.NewFromInt(5)

		_, err := f.svc.Create(ctx, storeID, actorID, CreateProductRequest{SKU: "A1", Name: "A", Price: decimal.NewFromInt(10), CompareAtPrice: &low})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_COMPARE_AT_PRICE", domainErr.Code)
	})
}

func TestProductService_Update_ExcludesSelfFromUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	storeID := uuid.New()
	product, _ := catalog.NewProduct(storeID, "SKU-1", "Mug", "", decimal.NewFromInt(8))

	f.products.On("FindByIDForStore", ctx, storeID, product.ID).Return(product, nil)
	f.products.On("ExistsBySKU", ctx, storeID, "SKU-1", &product.ID).Return(false, nil)
	f.products.On("ExistsBySlug", ctx, storeID, "big-mug", &product.ID).Return(false, nil)
	f.products.On("Save", ctx, product).Return(nil)

	resp, err := f.svc.Update(ctx, storeID, product.ID, uuid.New(), UpdateProductRequest{
		SKU: "sku-1", Name: "Big Mug", Price: decimal.NewFromInt(9),
	})

	require.NoError(t, err)
	assert.Equal(t, "big-mug", resp.Slug)
	assert.True(t, resp.Price.Equal(decimal.NewFromInt(9)))
	f.products.AssertExpectations(t)
}

func TestProductService_AdjustStock(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	storeID := uuid.New()
	product, _ := catalog.NewProduct(storeID, "SKU-1", "Mug", "", decimal.NewFromInt(8))
	product.Stock = 5

	t.Run("applies the delta in the repository", func(t *testing.T) {
		f.products.On("AdjustStock", ctx, storeID, product.ID, 2).Return(nil).Once()
		f.products.On("FindByIDForStore", ctx, storeID, product.ID).Return(product, nil).Once()

		resp, err := f.svc.AdjustStock(ctx, storeID, product.ID, uuid.New(), AdjustStockRequest{Delta: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, resp.Stock)
		require.Len(t, f.audit.entries, 1)
		assert.Equal(t, "2", f.audit.entries[0].Metadata["stock_delta"])
	})

	t.Run("insufficient stock", func(t *testing.T) {
		f.products.On("AdjustStock", ctx, storeID, product.ID, -6).Return(shared.ErrInsufficientStock).Once()

		_, err := f.svc.AdjustStock(ctx, storeID, product.ID, uuid.New(), AdjustStockRequest{Delta: -6})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	storeID := uuid.New()
	product, _ := catalog.NewProduct(storeID, "SKU-1", "Mug", "", decimal.NewFromInt(8))

	f.products.On("FindByIDForStore", ctx, storeID, product.ID).Return(product, nil)
	f.products.On("DeleteForStore", ctx, storeID, product.ID).Return(nil)

	require.NoError(t, f.svc.Delete(ctx, storeID, product.ID, uuid.New()))
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, audit.ActionProductDeleted, f.audit.entries[0].Action)
	assert.Equal(t, "SKU-1", f.audit.entries[0].Metadata["sku"])
}

func TestProductService_ListPublished_ForcesActiveStatus(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	storeID := uuid.New()
	active, _ := catalog.NewProduct(storeID, "SKU-1", "Mug", "", decimal.NewFromInt(8))
	require.NoError(t, active.Publish())

	onlyActive := mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.Filters["status"] == "ACTIVE" && filter.PageSize == 100
	})
	f.products.On("FindAllForStore", ctx, storeID, onlyActive).Return([]catalog.Product{*active}, nil)
	f.products.On("CountForStore", ctx, storeID, onlyActive).Return(int64(1), nil)

	filter := shared.Filter{Page: 1, PageSize: 500, Filters: map[string]interface{}{"status": "DRAFT"}}
	page, err := f.svc.ListPublished(ctx, storeID, filter)

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "mug", page.Items[0].Slug)
	assert.Equal(t, int64(1), page.Total)
}

func TestProductService_GetPublishedBySlug(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	storeID := uuid.New()
	draft, _ := catalog.NewProduct(storeID, "SKU-1", "Draft Mug", "", decimal.NewFromInt(8))
	live, _ := catalog.NewProduct(storeID, "SKU-2", "Live Mug", "", decimal.NewFromInt(8))
	live.Stock = 4
	require.NoError(t, live.Publish())

	f.products.On("FindBySlug", ctx, storeID, "draft-mug").Return(draft, nil)
	f.products.On("FindBySlug", ctx, storeID, "live-mug").Return(live, nil)

	_, err := f.svc.GetPublishedBySlug(ctx, storeID, "draft-mug")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	resp, err := f.svc.GetPublishedBySlug(ctx, storeID, "live-mug")
	require.NoError(t, err)
	assert.True(t, resp.InStock)
	assert.Equal(t, 4, resp.Available)
}
