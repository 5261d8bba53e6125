package shared

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseAggregateRoot adds an optimistic-lock version to BaseEntity
type BaseAggregateRoot struct {
	BaseEntity
	Version int `gorm:"not null;default:1"`

	// version as last read from or written to the database; 0 until persisted
	stored int
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// GetVersion returns the current in-memory version
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// StoredVersion returns the version the row had when it was loaded or last
// saved. Repositories update with WHERE version = StoredVersion().
func (a *BaseAggregateRoot) StoredVersion() int {
	return a.stored
}

// MarkStored records that the current version is what the database holds
func (a *BaseAggregateRoot) MarkStored() {
	a.stored = a.Version
}

// AfterFind is the gorm hook that remembers the version a row was read at
func (a *BaseAggregateRoot) AfterFind(*gorm.DB) error {
	a.MarkStored()
	return nil
}

// Modified touches the aggregate and bumps its version
func (a *BaseAggregateRoot) Modified() {
	a.Touch()
	a.Version++
}

// StoreAggregateRoot is a soft-deletable aggregate owned by one store.
// Every query against a store-owned table must filter on store_id.
type StoreAggregateRoot struct {
	BaseAggregateRoot
	StoreID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func NewStoreAggregateRoot(storeID uuid.UUID) StoreAggregateRoot {
	return StoreAggregateRoot{BaseAggregateRoot: NewBaseAggregateRoot(), StoreID: storeID}
}
