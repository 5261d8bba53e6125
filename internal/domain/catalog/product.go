package catalog

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductStatus represents the publication status of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// IsValid checks if the status is known
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

var skuPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_\-.]*$`)

// Product is a sellable item owned by a store.
// Slug and SKU are unique per store among non-deleted products.
type Product struct {
	shared.StoreAggregateRoot
	Name           string            `gorm:"type:varchar(200);not null"`
	Slug           string            `gorm:"type:varchar(200);not null;index"`
	SKU            string            `gorm:"column:sku;type:varchar(64);not null;index"`
	Description    string            `gorm:"type:text"`
	Price          decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	CompareAtPrice *decimal.Decimal  `gorm:"type:decimal(18,4)"`
	Stock          int               `gorm:"not null;default:0"`
	Status         ProductStatus     `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	BrandID        *uuid.UUID        `gorm:"type:uuid;index"`
	CategoryID     *uuid.UUID        `gorm:"type:uuid;index"`
	Attributes     map[string]string `gorm:"type:jsonb;serializer:json"`
	ImageURL       string            `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a draft product. An empty slug is derived from the name.
func NewProduct(storeID uuid.UUID, sku, name, productSlug string, price decimal.Decimal) (*Product, error) {
	sku, err := normalizeSKU(sku)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	s, err := shared.NormalizeSlug(productSlug, name)
	if err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	return &Product{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID),
		Name:               name,
		Slug:               s,
		SKU:                sku,
		Price:              price.Round(4),
		Status:             ProductStatusDraft,
		Attributes:         map[string]string{},
	}, nil
}

// Update changes descriptive fields
func (p *Product) Update(name, productSlug, description, imageURL string) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}
	s, err := shared.NormalizeSlug(productSlug, name)
	if err != nil {
		return err
	}
	p.Name = name
	p.Slug = s
	p.Description = strings.TrimSpace(description)
	p.ImageURL = strings.TrimSpace(imageURL)
	p.Modified()
	return nil
}

// ChangeSKU replaces the SKU
func (p *Product) ChangeSKU(sku string) error {
	normalized, err := normalizeSKU(sku)
	if err != nil {
		return err
	}
	p.SKU = normalized
	p.Modified()
	return nil
}

// SetPricing sets price and the optional compare-at price
func (p *Product) SetPricing(price decimal.Decimal, compareAt *decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if compareAt != nil && compareAt.LessThan(price) {
		return shared.NewDomainError("INVALID_COMPARE_AT_PRICE", "Compare-at price cannot be lower than price")
	}
	p.Price = price.Round(4)
	if compareAt != nil {
		c := compareAt.Round(4)
		p.CompareAtPrice = &c
	} else {
		p.CompareAtPrice = nil
	}
	p.Modified()
	return nil
}

// SetStock sets the absolute stock level
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	p.Stock = stock
	p.Modified()
	return nil
}

// SetBrand assigns or clears the brand
func (p *Product) SetBrand(brandID *uuid.UUID) {
	p.BrandID = brandID
	p.Modified()
}

// SetCategory assigns or clears the category
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.Modified()
}

// SetAttributes replaces the attribute values
func (p *Product) SetAttributes(attrs map[string]string) {
	cleaned := make(map[string]string, len(attrs))
	for k, v := range attrs {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		cleaned[k] = strings.TrimSpace(v)
	}
	p.Attributes = cleaned
	p.Modified()
}

// Publish makes the product visible on the storefront
func (p *Product) Publish() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already published")
	}
	p.Status = ProductStatusActive
	p.Modified()
	return nil
}

// Archive hides the product from the storefront
func (p *Product) Archive() error {
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("ALREADY_ARCHIVED", "Product is already archived")
	}
	p.Status = ProductStatusArchived
	p.Modified()
	return nil
}

// SetStatus applies an explicit status, used by bulk import
func (p *Product) SetStatus(status ProductStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown product status")
	}
	p.Status = status
	p.Modified()
	return nil
}

// IsPurchasable reports whether the product can be added to a cart
func (p *Product) IsPurchasable() bool {
	return p.Status == ProductStatusActive && !p.DeletedAt.Valid
}

func normalizeSKU(sku string) (string, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return "", shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 64 {
		return "", shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	if !skuPattern.MatchString(sku) {
		return "", shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, digits, dot, dash and underscore")
	}
	return sku, nil
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
