package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Category is a node in a store's category tree
type Category struct {
	shared.StoreAggregateRoot
	Name      string     `gorm:"type:varchar(200);not null"`
	Slug      string     `gorm:"type:varchar(200);not null;index"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index"`
	SortOrder int        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a category
func NewCategory(storeID uuid.UUID, name, categorySlug string, sortOrder int) (*Category, error) {
	c := &Category{StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID)}
	if err := c.Update(name, categorySlug, sortOrder); err != nil {
		return nil, err
	}
	c.Version = 1
	return c, nil
}

// Update changes the category fields
func (c *Category) Update(name, categorySlug string, sortOrder int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	s, err := shared.NormalizeSlug(categorySlug, name)
	if err != nil {
		return err
	}
	c.Name = name
	c.Slug = s
	c.SortOrder = sortOrder
	c.Modified()
	return nil
}

// SetParent moves the category under parent. The caller verifies the parent
// belongs to the same store.
func (c *Category) SetParent(parent *Category) error {
	if parent == nil {
		c.ParentID = nil
		c.Touch()
		return nil
	}
	if parent.ID == c.ID {
		return shared.NewDomainError("INVALID_PARENT", "Category cannot be its own parent")
	}
	if parent.StoreID != c.StoreID {
		return shared.NewDomainError("INVALID_PARENT", "Parent category belongs to another store")
	}
	if parent.ParentID != nil && *parent.ParentID == c.ID {
		return shared.NewDomainError("INVALID_PARENT", "Category hierarchy cannot contain cycles")
	}
	id := parent.ID
	c.ParentID = &id
	c.Modified()
	return nil
}
