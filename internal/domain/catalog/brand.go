package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Brand groups products by manufacturer or label
type Brand struct {
	shared.StoreAggregateRoot
	Name    string `gorm:"type:varchar(200);not null"`
	Slug    string `gorm:"type:varchar(200);not null;index"`
	LogoURL string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Brand) TableName() string {
	return "brands"
}

// NewBrand creates a brand
func NewBrand(storeID uuid.UUID, name, brandSlug, logoURL string) (*Brand, error) {
	b := &Brand{StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID)}
	if err := b.Update(name, brandSlug, logoURL); err != nil {
		return nil, err
	}
	b.Version = 1
	return b, nil
}

// Update changes the brand fields
func (b *Brand) Update(name, brandSlug, logoURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Brand name cannot be empty")
	}
	s, err := shared.NormalizeSlug(brandSlug, name)
	if err != nil {
		return err
	}
	b.Name = name
	b.Slug = s
	b.LogoURL = strings.TrimSpace(logoURL)
	b.Modified()
	return nil
}
