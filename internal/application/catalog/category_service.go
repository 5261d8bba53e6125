package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CategoryService handles category CRUD
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo catalog.CategoryRepository, logger *zap.Logger) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, logger: logger}
}

// Create creates a category, optionally under a parent of the same store
func (s *CategoryService) Create(ctx context.Context, storeID uuid.UUID, req CategoryRequest) (*CategoryResponse, error) {
	category, err := catalog.NewCategory(storeID, req.Name, req.Slug, req.SortOrder)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, storeID, category.Slug, nil); err != nil {
		return nil, err
	}
	if err := s.setParent(ctx, category, req.ParentID); err != nil {
		return nil, err
	}
	category.Version = 1
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Get returns a category
func (s *CategoryService) Get(ctx context.Context, storeID, categoryID uuid.UUID) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByIDForStore(ctx, storeID, categoryID)
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// List returns a page of categories ordered by sort_order by default
func (s *CategoryService) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[CategoryResponse], error) {
	filter = filter.Normalize()
	categories, err := s.categoryRepo.FindAllForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[CategoryResponse]{}, err
	}
	total, err := s.categoryRepo.CountForStore(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[CategoryResponse]{}, err
	}
	items := make([]CategoryResponse, len(categories))
	for i := range categories {
		items[i] = ToCategoryResponse(&categories[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update replaces a category's fields and parent
func (s *CategoryService) Update(ctx context.Context, storeID, categoryID uuid.UUID, req CategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByIDForStore(ctx, storeID, categoryID)
	if err != nil {
		return nil, err
	}
	if err := category.Update(req.Name, req.Slug, req.SortOrder); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, storeID, category.Slug, &category.ID); err != nil {
		return nil, err
	}
	if err := s.setParent(ctx, category, req.ParentID); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Delete soft deletes a category without children
func (s *CategoryService) Delete(ctx context.Context, storeID, categoryID uuid.UUID) error {
	hasChildren, err := s.categoryRepo.HasChildren(ctx, storeID, categoryID)
	if err != nil {
		return err
	}
	if hasChildren {
		return shared.NewDomainError("HAS_CHILDREN", "Category has child categories")
	}
	if err := s.categoryRepo.DeleteForStore(ctx, storeID, categoryID); err != nil {
		return err
	}
	s.logger.Info("Category deleted", zap.String("store_id", storeID.String()), zap.String("category_id", categoryID.String()))
	return nil
}

func (s *CategoryService) setParent(ctx context.Context, category *catalog.Category, parentID *uuid.UUID) error {
	if parentID == nil {
		return category.SetParent(nil)
	}
	if *parentID == category.ID {
		return shared.NewDomainError("INVALID_PARENT", "Category cannot be its own parent")
	}
	parent, err := s.categoryRepo.FindByIDForStore(ctx, category.StoreID, *parentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_PARENT", "Parent category not found")
		}
		return err
	}
	return category.SetParent(parent)
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, storeID uuid.UUID, slug string, excludeID *uuid.UUID) error {
	exists, err := s.categoryRepo.ExistsBySlug(ctx, storeID, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "Category with this slug already exists")
	}
	return nil
}
