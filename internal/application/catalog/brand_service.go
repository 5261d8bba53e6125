package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BrandService handles brand CRUD
type BrandService struct {
	brandRepo catalog.BrandRepository
	logger    *zap.Logger
}

// NewBrandService creates a new BrandService
func NewBrandService(brandRepo catalog.BrandRepository, logger *zap.Logger) *BrandService {
	return &BrandService{brandRepo: brandRepo, logger: logger}
}

// Create creates a brand
func (s *BrandService) Create(ctx context.Context, storeID uuid.UUID, req BrandRequest) (*BrandResponse, error) {
	brand, err := catalog.NewBrand(storeID, req.Name, req.Slug, req.LogoURL)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, storeID, brand.Slug, nil); err != nil {
		return nil, err
	}
	if err := s.brandRepo.Save(ctx, brand); err != nil {
		return nil, err
	}
	resp := ToBrandResponse(brand)
	return &resp, nil
}

// Get returns a brand
func (s *BrandService) Get(ctx context.Context, storeID, brandID uuid.UUID) (*BrandResponse, error) {
	brand, err := s.brandRepo.FindByIDForStore(ctx, storeID, brandID)
	if err != nil {
		return nil, err
	}
	resp := ToBrandResponse(brand)
	return &resp, nil
}

// List returns a page of brands
func (s *BrandService) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[BrandResponse], error) {
	filter = filter.Normalize()
	brands, err := s.brandRepo.FindAllForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[BrandResponse]{}, err
	}
	total, err := s.brandRepo.CountForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[BrandResponse]{}, err
	}
	items := make([]BrandResponse, len(brands))
	for i := range brands {
		items[i] = ToBrandResponse(&brands[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update replaces a brand's fields
func (s *BrandService) Update(ctx context.Context, storeID, brandID uuid.UUID, req BrandRequest) (*BrandResponse, error) {
	brand, err := s.brandRepo.FindByIDForStore(ctx, storeID, brandID)
	if err != nil {
		return nil, err
	}
	if err := brand.Update(req.Name, req.Slug, req.LogoURL); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, storeID, brand.Slug, &brand.ID); err != nil {
		return nil, err
	}
	if err := s.brandRepo.Save(ctx, brand); err != nil {
		return nil, err
	}
	resp := ToBrandResponse(brand)
	return &resp, nil
}

// Delete soft deletes a brand
func (s *BrandService) Delete(ctx context.Context, storeID, brandID uuid.UUID) error {
	if err := s.brandRepo.DeleteForStore(ctx, storeID, brandID); err != nil {
		return err
	}
	s.logger.Info("Brand deleted", zap.String("store_id", storeID.String()), zap.String("brand_id", brandID.String()))
	return nil
}

func (s *BrandService) ensureSlugFree(ctx context.Context, storeID uuid.UUID, slug string, excludeID *uuid.UUID) error {
	exists, err := s.brandRepo.ExistsBySlug(ctx, storeID, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "Brand with this slug already exists")
	}
	return nil
}
