package order

import (
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// Address is a postal address stored as embedded columns on the order
type Address struct {
	Line1      string `gorm:"type:varchar(255)"`
	Line2      string `gorm:"type:varchar(255)"`
	City       string `gorm:"type:varchar(100)"`
	State      string `gorm:"type:varchar(100)"`
	PostalCode string `gorm:"type:varchar(20)"`
	Country    string `gorm:"type:char(2)"`
}

// Validate checks the required address fields
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Address line 1 is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "City is required")
	}
	if len(strings.TrimSpace(a.Country)) != 2 {
		return shared.NewDomainError("INVALID_ADDRESS", "Country must be a 2-letter ISO code")
	}
	return nil
}

// IsEmpty reports whether no field is set
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Normalized trims fields and upper-cases the country
func (a Address) Normalized() Address {
	return Address{
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
}
