package importapp

import (
	"context"
	"strings"

	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// memProducts is an in-memory catalog.ProductRepository keyed by SKU
type memProducts struct {
	catalog.ProductRepository
	bySKU   map[string]*catalog.Product
	saved   []string
	saveErr error
}

func newMemProducts() *memProducts {
	return &memProducts{bySKU: make(map[string]*catalog.Product)}
}

func (m *memProducts) FindBySKU(_ context.Context, _ uuid.UUID, sku string) (*catalog.Product, error) {
	p, ok := m.bySKU[strings.ToUpper(sku)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memProducts) ExistsBySlug(_ context.Context, _ uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	for _, p := range m.bySKU {
		if p.Slug == slug && (excludeID == nil || *excludeID != p.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProducts) Save(_ context.Context, product *catalog.Product) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	clone := *product
	m.bySKU[product.SKU] = &clone
	m.saved = append(m.saved, product.SKU)
	return nil
}

// MockBrandRepository is a mock implementation of catalog.BrandRepository
type MockBrandRepository struct {
	catalog.BrandRepository
	mock.Mock
}

func (m *MockBrandRepository) FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*catalog.Brand, error) {
	args := m.Called(ctx, storeID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Brand), args.Error(1)
}

// MockCategoryRepository is a mock implementation of catalog.CategoryRepository
type MockCategoryRepository struct {
	catalog.CategoryRepository
	mock.Mock
}

func (m *MockCategoryRepository) FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*catalog.Category, error) {
	args := m.Called(ctx, storeID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

type inlineTx struct {
	calls int
}

func (t *inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type recordingAudit struct {
	entries []auditapp.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry auditapp.Entry) {
	r.entries = append(r.entries, entry)
}
