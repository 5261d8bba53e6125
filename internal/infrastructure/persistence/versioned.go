package persistence

import (
	"errors"

	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// versioned is an aggregate guarded by an optimistic-lock version
type versioned interface {
	GetVersion() int
	StoredVersion() int
	MarkStored()
	Modified()
}

// saveVersioned inserts an aggregate that was never persisted, or updates a
// loaded one only if its row still carries the version it was read at.
// Associations are never written.
func saveVersioned(db *gorm.DB, agg versioned) error {
	if agg.StoredVersion() == 0 {
		if err := db.Omit(clause.Associations).Create(agg).Error; err != nil {
			return translate(err)
		}
		agg.MarkStored()
		return nil
	}

	read := agg.StoredVersion()
	if agg.GetVersion() == read {
		agg.Modified()
	}
	result := db.Model(agg).
		Select("*").
		Omit(clause.Associations, "created_at").
		Where("version = ?", read).
		Updates(agg)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	agg.MarkStored()
	return nil
}

// translate maps driver errors that gorm normalised (TranslateError) to domain errors
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}
