package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Membership links a user to a store with a role (the user_stores join table)
type Membership struct {
	shared.BaseEntity
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_store"`
	StoreID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_store;index"`
	Role    Role      `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (Membership) TableName() string {
	return "user_stores"
}

// NewMembership creates a membership
func NewMembership(userID, storeID uuid.UUID, role Role) (*Membership, error) {
	if userID == uuid.Nil || storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBERSHIP", "User and store are required")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	return &Membership{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		StoreID:    storeID,
		Role:       role,
	}, nil
}

// ChangeRole updates the role
func (m *Membership) ChangeRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	m.Role = role
	m.Touch()
	return nil
}

// MemberView is a membership joined with its user for listings
type MemberView struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}
