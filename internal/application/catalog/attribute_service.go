package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// AttributeService handles the store's product attribute definitions
type AttributeService struct {
	attributeRepo catalog.AttributeRepository
}

// NewAttributeService creates a new AttributeService
func NewAttributeService(attributeRepo catalog.AttributeRepository) *AttributeService {
	return &AttributeService{attributeRepo: attributeRepo}
}

// Create defines an attribute. Names are unique per store.
func (s *AttributeService) Create(ctx context.Context, storeID uuid.UUID, req AttributeRequest) (*AttributeResponse, error) {
	attr, err := catalog.NewAttribute(storeID, req.Name, req.Values)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, storeID, attr.Name, nil); err != nil {
		return nil, err
	}
	if err := s.attributeRepo.Save(ctx, attr); err != nil {
		return nil, err
	}
	resp := ToAttributeResponse(attr)
	return &resp, nil
}

// List returns all attributes of the store
func (s *AttributeService) List(ctx context.Context, storeID uuid.UUID) ([]AttributeResponse, error) {
	attrs, err := s.attributeRepo.FindAllForStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	items := make([]AttributeResponse, len(attrs))
	for i := range attrs {
		items[i] = ToAttributeResponse(&attrs[i])
	}
	return items, nil
}

// Get returns one attribute of the store
func (s *AttributeService) Get(ctx context.Context, storeID, attributeID uuid.UUID) (*AttributeResponse, error) {
	attr, err := s.attributeRepo.FindByIDForStore(ctx, storeID, attributeID)
	if err != nil {
		return nil, err
	}
	resp := ToAttributeResponse(attr)
	return &resp, nil
}

// Update replaces an attribute's name and values
func (s *AttributeService) Update(ctx context.Context, storeID, attributeID uuid.UUID, req AttributeRequest) (*AttributeResponse, error) {
	attr, err := s.attributeRepo.FindByIDForStore(ctx, storeID, attributeID)
	if err != nil {
		return nil, err
	}
	if err := attr.Update(req.Name, req.Values); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, storeID, attr.Name, &attr.ID); err != nil {
		return nil, err
	}
	if err := s.attributeRepo.Save(ctx, attr); err != nil {
		return nil, err
	}
	resp := ToAttributeResponse(attr)
	return &resp, nil
}

// Delete removes an attribute definition
func (s *AttributeService) Delete(ctx context.Context, storeID, attributeID uuid.UUID) error {
	return s.attributeRepo.DeleteForStore(ctx, storeID, attributeID)
}

func (s *AttributeService) ensureNameFree(ctx context.Context, storeID uuid.UUID, name string, excludeID *uuid.UUID) error {
	exists, err := s.attributeRepo.ExistsByName(ctx, storeID, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "Attribute with this name already exists")
	}
	return nil
}
