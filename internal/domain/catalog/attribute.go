package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Attribute is a store-defined product option such as Size or Color
type Attribute struct {
	shared.StoreAggregateRoot
	Name   string   `gorm:"type:varchar(100);not null;index"`
	Values []string `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (Attribute) TableName() string {
	return "attributes"
}

// NewAttribute creates an attribute with its ordered values
func NewAttribute(storeID uuid.UUID, name string, values []string) (*Attribute, error) {
	a := &Attribute{StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID)}
	if err := a.Update(name, values); err != nil {
		return nil, err
	}
	a.Version = 1
	return a, nil
}

// Update replaces name and values. Blank and duplicate values are dropped.
func (a *Attribute) Update(name string, values []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Attribute name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Attribute name cannot exceed 100 characters")
	}
	seen := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	if len(cleaned) == 0 {
		return shared.NewDomainError("INVALID_VALUES", "Attribute needs at least one value")
	}
	a.Name = name
	a.Values = cleaned
	a.Modified()
	return nil
}

// Allows reports whether value is one of the attribute's values
func (a *Attribute) Allows(value string) bool {
	for _, v := range a.Values {
		if v == value {
			return true
		}
	}
	return false
}

// ValidateAttributes checks product attribute values against the store's attributes
func ValidateAttributes(values map[string]string, defined []Attribute) error {
	byName := make(map[string]*Attribute, len(defined))
	for i := range defined {
		byName[defined[i].Name] = &defined[i]
	}
	for name, value := range values {
		attr, ok := byName[name]
		if !ok {
			return shared.NewDomainError("UNKNOWN_ATTRIBUTE", "Unknown attribute: "+name)
		}
		if !attr.Allows(value) {
			return shared.NewDomainError("INVALID_ATTRIBUTE_VALUE", "Value "+value+" is not allowed for "+name)
		}
	}
	return nil
}
