package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductService handles product administration and the storefront catalog
type ProductService struct {
	productRepo   catalog.ProductRepository
	brandRepo     catalog.BrandRepository
	categoryRepo  catalog.CategoryRepository
	attributeRepo catalog.AttributeRepository
	audit         auditapp.Recorder
	logger        *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	brandRepo catalog.BrandRepository,
	categoryRepo catalog.CategoryRepository,
	attributeRepo catalog.AttributeRepository,
	recorder auditapp.Recorder,
	logger *zap.Logger,
) *ProductService {
	if recorder == nil {
		recorder = auditapp.Nop()
	}
	return &ProductService{
		productRepo:   productRepo,
		brandRepo:     brandRepo,
		categoryRepo:  categoryRepo,
		attributeRepo: attributeRepo,
		audit:         recorder,
		logger:        logger,
	}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, storeID, actorID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(storeID, req.SKU, req.Name, req.Slug, req.Price)
	if err != nil {
		return nil, err
	}
	if err := product.Update(req.Name, product.Slug, req.Description, req.ImageURL); err != nil {
		return nil, err
	}
	if err := product.SetPricing(req.Price, req.CompareAtPrice); err != nil {
		return nil, err
	}
	if err := product.SetStock(req.Stock); err != nil {
		return nil, err
	}
	if req.Status != "" {
		if err := product.SetStatus(catalog.ProductStatus(req.Status)); err != nil {
			return nil, err
		}
	}
	if err := s.applyRelations(ctx, product, req.BrandID, req.CategoryID, req.Attributes); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, product, nil); err != nil {
		return nil, err
	}
	product.Version = 1

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.record(ctx, storeID, actorID, audit.ActionProductCreated, product, map[string]string{"sku": product.SKU})
	resp := ToProductResponse(product)
	return &resp, nil
}

// Get retrieves a product by ID
func (s *ProductService) Get(ctx context.Context, storeID, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForStore(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List retrieves a page of products. Filters: status, brand_id, category_id.
func (s *ProductService) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[ProductResponse], error) {
	filter = filter.Normalize()
	products, err := s.productRepo.FindAllForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	total, err := s.productRepo.CountForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	return shared.NewPaginated(ToProductResponses(products), total, filter.Page, filter.PageSize), nil
}

// Update replaces the editable fields of a product
func (s *ProductService) Update(ctx context.Context, storeID, productID, actorID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForStore(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}

	if err := product.ChangeSKU(req.SKU); err != nil {
		return nil, err
	}
	if err := product.Update(req.Name, req.Slug, req.Description, req.ImageURL); err != nil {
		return nil, err
	}
	if err := product.SetPricing(req.Price, req.CompareAtPrice); err != nil {
		return nil, err
	}
	if err := s.applyRelations(ctx, product, req.BrandID, req.CategoryID, req.Attributes); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, product, &product.ID); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.record(ctx, storeID, actorID, audit.ActionProductUpdated, product, nil)
	resp := ToProductResponse(product)
	return &resp, nil
}

// Delete soft deletes a product. Its slug and SKU become reusable.
func (s *ProductService) Delete(ctx context.Context, storeID, productID, actorID uuid.UUID) error {
	product, err := s.productRepo.FindByIDForStore(ctx, storeID, productID)
	if err != nil {
		return err
	}
	if err := s.productRepo.DeleteForStore(ctx, storeID, productID); err != nil {
		return err
	}
	s.record(ctx, storeID, actorID, audit.ActionProductDeleted, product, map[string]string{"sku": product.SKU})
	return nil
}

// Publish makes a product visible on the storefront
func (s *ProductService) Publish(ctx context.Context, storeID, productID, actorID uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, storeID, productID, actorID, func(p *catalog.Product) error {
		return p.Publish()
	})
}

// Archive hides a product from the storefront
func (s *ProductService) Archive(ctx context.Context, storeID, productID, actorID uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, storeID, productID, actorID, func(p *catalog.Product) error {
		return p.Archive()
	})
}

// AdjustStock applies a delta to a product's stock in one guarded UPDATE, so
// it composes with checkouts taking stock at the same time
func (s *ProductService) AdjustStock(ctx context.Context, storeID, productID, actorID uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	if err := s.productRepo.AdjustStock(ctx, storeID, productID, req.Delta); err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByIDForStore(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, storeID, actorID, audit.ActionProductUpdated, product, map[string]string{
		"stock_delta": strconv.Itoa(req.Delta),
	})
	resp := ToProductResponse(product)
	return &resp, nil
}

// ListPublished returns ACTIVE products for the storefront
func (s *ProductService) ListPublished(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[PublicProductResponse], error) {
	filter = filter.Normalize()
	filter.Filters["status"] = string(catalog.ProductStatusActive)

	products, err := s.productRepo.FindAllForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[PublicProductResponse]{}, err
	}
	total, err := s.productRepo.CountForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[PublicProductResponse]{}, err
	}

	items := make([]PublicProductResponse, len(products))
	for i := range products {
		items[i] = ToPublicProductResponse(&products[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// GetPublishedBySlug returns an ACTIVE product by slug. Drafts and archived
// products are reported as not found.
func (s *ProductService) GetPublishedBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*PublicProductResponse, error) {
	product, err := s.productRepo.FindBySlug(ctx, storeID, slug)
	if err != nil {
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, shared.NewDomainError("NOT_FOUND", "Product not found")
	}
	resp := ToPublicProductResponse(product)
	return &resp, nil
}

func (s *ProductService) mutate(ctx context.Context, storeID, productID, actorID uuid.UUID, fn func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDForStore(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	if err := fn(product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.record(ctx, storeID, actorID, audit.ActionProductUpdated, product, map[string]string{
		"status": string(product.Status),
	})
	resp := ToProductResponse(product)
	return &resp, nil
}

// applyRelations validates brand, category and attributes within the store
func (s *ProductService) applyRelations(ctx context.Context, product *catalog.Product, brandID, categoryID *uuid.UUID, attrs map[string]string) error {
	if brandID != nil {
		if _, err := s.brandRepo.FindByIDForStore(ctx, product.StoreID, *brandID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("INVALID_BRAND", "Brand not found")
			}
			return err
		}
	}
	product.SetBrand(brandID)

	if categoryID != nil {
		if _, err := s.categoryRepo.FindByIDForStore(ctx, product.StoreID, *categoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("INVALID_CATEGORY", "Category not found")
			}
			return err
		}
	}
	product.SetCategory(categoryID)

	if len(attrs) > 0 {
		defined, err := s.attributeRepo.FindAllForStore(ctx, product.StoreID)
		if err != nil {
			return err
		}
		if err := catalog.ValidateAttributes(attrs, defined); err != nil {
			return err
		}
	}
	product.SetAttributes(attrs)
	return nil
}

func (s *ProductService) ensureUnique(ctx context.Context, product *catalog.Product, excludeID *uuid.UUID) error {
	exists, err := s.productRepo.ExistsBySKU(ctx, product.StoreID, product.SKU, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "Product with this SKU already exists")
	}
	exists, err = s.productRepo.ExistsBySlug(ctx, product.StoreID, product.Slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "Product with this slug already exists")
	}
	return nil
}

func (s *ProductService) record(ctx context.Context, storeID, actorID uuid.UUID, action string, product *catalog.Product, meta map[string]string) {
	s.audit.Record(ctx, auditapp.Entry{
		StoreID:    storeID,
		ActorID:    &actorID,
		Action:     action,
		EntityType: "product",
		EntityID:   product.ID.String(),
		Metadata:   meta,
	})
}
