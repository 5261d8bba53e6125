package store

import (
	"regexp"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Status represents the lifecycle status of a store
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Plan represents the subscription plan a store is on
type Plan string

const (
	PlanFree  Plan = "FREE"
	PlanBasic Plan = "BASIC"
	PlanPro   Plan = "PRO"
)

// IsValid checks if the plan is known
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPro:
		return true
	}
	return false
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Store is the tenant of the platform. It owns catalog, carts and orders.
type Store struct {
	shared.BaseAggregateRoot
	Name             string         `gorm:"type:varchar(200);not null"`
	Slug             string         `gorm:"type:varchar(200);not null;uniqueIndex:idx_store_slug,where:deleted_at IS NULL"`
	Currency         string         `gorm:"type:char(3);not null;default:'USD'"`
	Status           Status         `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	Plan             Plan           `gorm:"type:varchar(20);not null;default:'FREE'"`
	SupportEmail     string         `gorm:"type:varchar(255)"`
	StripeCustomerID string         `gorm:"type:varchar(100)"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for GORM
func (Store) TableName() string {
	return "stores"
}

// NewStore creates a store. An empty slug is derived from the name.
func NewStore(name, storeSlug, currency string) (*Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Store name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Store name cannot exceed 200 characters")
	}

	s, err := shared.NormalizeSlug(storeSlug, name)
	if err != nil {
		return nil, err
	}

	if currency == "" {
		currency = "USD"
	}
	currency = strings.ToUpper(currency)
	if !currencyPattern.MatchString(currency) {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}

	return &Store{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              s,
		Currency:          currency,
		Status:            StatusActive,
		Plan:              PlanFree,
	}, nil
}

// Update changes the store's editable settings
func (s *Store) Update(name, supportEmail string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Store name cannot be empty")
	}
	s.Name = name
	s.SupportEmail = strings.ToLower(strings.TrimSpace(supportEmail))
	s.Modified()
	return nil
}

// Suspend blocks the storefront
func (s *Store) Suspend() error {
	if s.Status == StatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Store is already suspended")
	}
	s.Status = StatusSuspended
	s.Modified()
	return nil
}

// Activate re-opens a suspended store
func (s *Store) Activate() error {
	if s.Status == StatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Store is already active")
	}
	s.Status = StatusActive
	s.Modified()
	return nil
}

// ChangePlan records the plan granted by billing
func (s *Store) ChangePlan(plan Plan) error {
	if !plan.IsValid() {
		return shared.NewDomainError("INVALID_PLAN", "Unknown plan")
	}
	s.Plan = plan
	s.Modified()
	return nil
}

// SetStripeCustomer links the store to its Stripe customer
func (s *Store) SetStripeCustomer(customerID string) {
	s.StripeCustomerID = customerID
	s.Touch()
}

// IsOpen reports whether the storefront serves traffic
func (s *Store) IsOpen() bool {
	return s.Status == StatusActive && !s.DeletedAt.Valid
}
