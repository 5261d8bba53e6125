package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	SKU            string            `json:"sku" binding:"required,min=1,max=64"`
	Name           string            `json:"name" binding:"required,min=1,max=200"`
	Slug           string            `json:"slug" binding:"omitempty,max=200"`
	Description    string            `json:"description" binding:"max=5000"`
	Price          decimal.Decimal   `json:"price" binding:"required"`
	CompareAtPrice *decimal.Decimal  `json:"compare_at_price"`
	Stock          int               `json:"stock" binding:"min=0"`
	Status         string            `json:"status" binding:"omitempty,oneof=DRAFT ACTIVE ARCHIVED"`
	BrandID        *uuid.UUID        `json:"brand_id"`
	CategoryID     *uuid.UUID        `json:"category_id"`
	Attributes     map[string]string `json:"attributes"`
	ImageURL       string            `json:"image_url" binding:"omitempty,url,max=500"`
}

// UpdateProductRequest replaces the editable fields of a product
type UpdateProductRequest struct {
	SKU            string            `json:"sku" binding:"required,min=1,max=64"`
	Name           string            `json:"name" binding:"required,min=1,max=200"`
	Slug           string            `json:"slug" binding:"omitempty,max=200"`
	Description    string            `json:"description" binding:"max=5000"`
	Price          decimal.Decimal   `json:"price" binding:"required"`
	CompareAtPrice *decimal.Decimal  `json:"compare_at_price"`
	BrandID        *uuid.UUID        `json:"brand_id"`
	CategoryID     *uuid.UUID        `json:"category_id"`
	Attributes     map[string]string `json:"attributes"`
	ImageURL       string            `json:"image_url" binding:"omitempty,url,max=500"`
}

// AdjustStockRequest applies a signed delta to stock
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// ProductResponse represents a product in dashboard responses
type ProductResponse struct {
	ID             uuid.UUID         `json:"id"`
	StoreID        uuid.UUID         `json:"store_id"`
	SKU            string            `json:"sku"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description"`
	Price          decimal.Decimal   `json:"price"`
	CompareAtPrice *decimal.Decimal  `json:"compare_at_price,omitempty"`
	Stock          int               `json:"stock"`
	Status         string            `json:"status"`
	BrandID        *uuid.UUID        `json:"brand_id,omitempty"`
	CategoryID     *uuid.UUID        `json:"category_id,omitempty"`
	Attributes     map[string]string `json:"attributes"`
	ImageURL       string            `json:"image_url,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Version        int               `json:"version"`
}

// PublicProductResponse is the storefront view of a product
type PublicProductResponse struct {
	ID             uuid.UUID         `json:"id"`
	SKU            string            `json:"sku"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description"`
	Price          decimal.Decimal   `json:"price"`
	CompareAtPrice *decimal.Decimal  `json:"compare_at_price,omitempty"`
	InStock        bool              `json:"in_stock"`
	Available      int               `json:"available"`
	BrandID        *uuid.UUID        `json:"brand_id,omitempty"`
	CategoryID     *uuid.UUID        `json:"category_id,omitempty"`
	Attributes     map[string]string `json:"attributes"`
	ImageURL       string            `json:"image_url,omitempty"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		StoreID:        p.StoreID,
		SKU:            p.SKU,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Stock:          p.Stock,
		Status:         string(p.Status),
		BrandID:        p.BrandID,
		CategoryID:     p.CategoryID,
		Attributes:     attributesOrEmpty(p.Attributes),
		ImageURL:       p.ImageURL,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.Version,
	}
}

// ToProductResponses converts a slice of domain Products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}

// ToPublicProductResponse converts a domain Product to its storefront view
func ToPublicProductResponse(p *catalog.Product) PublicProductResponse {
	return PublicProductResponse{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		InStock:        p.Stock > 0,
		Available:      p.Stock,
		BrandID:        p.BrandID,
		CategoryID:     p.CategoryID,
		Attributes:     attributesOrEmpty(p.Attributes),
		ImageURL:       p.ImageURL,
	}
}

func attributesOrEmpty(attrs map[string]string) map[string]string {
	if attrs == nil {
		return map[string]string{}
	}
	return attrs
}

// BrandRequest creates or replaces a brand
type BrandRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Slug    string `json:"slug" binding:"omitempty,max=200"`
	LogoURL string `json:"logo_url" binding:"omitempty,url,max=500"`
}

// BrandResponse represents a brand in API responses
type BrandResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToBrandResponse converts a domain Brand
func ToBrandResponse(b *catalog.Brand) BrandResponse {
	return BrandResponse{
		ID:        b.ID,
		Name:      b.Name,
		Slug:      b.Slug,
		LogoURL:   b.LogoURL,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// CategoryRequest creates or replaces a category
type CategoryRequest struct {
	Name      string     `json:"name" binding:"required,min=1,max=200"`
	Slug      string     `json:"slug" binding:"omitempty,max=200"`
	ParentID  *uuid.UUID `json:"parent_id"`
	SortOrder int        `json:"sort_order"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	SortOrder int        `json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ToCategoryResponse converts a domain Category
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		ParentID:  c.ParentID,
		SortOrder: c.SortOrder,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// AttributeRequest creates or replaces an attribute
type AttributeRequest struct {
	Name   string   `json:"name" binding:"required,min=1,max=100"`
	Values []string `json:"values" binding:"required,min=1,dive,max=100"`
}

// AttributeResponse represents an attribute in API responses
type AttributeResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Values []string  `json:"values"`
}

// ToAttributeResponse converts a domain Attribute
func ToAttributeResponse(a *catalog.Attribute) AttributeResponse {
	return AttributeResponse{ID: a.ID, Name: a.Name, Values: a.Values}
}
