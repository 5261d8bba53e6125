package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdempotencyKey(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		a := IdempotencyKey("stripe", "event", "evt_123")
		b := IdempotencyKey("stripe", "event", "evt_123")
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("differs by source and entity", func(t *testing.T) {
		base := IdempotencyKey("stripe", "event", "evt_123")
		assert.NotEqual(t, base, IdempotencyKey("sslcommerz", "event", "evt_123"))
		assert.NotEqual(t, base, IdempotencyKey("stripe", "ipn", "evt_123"))
	})
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.NotNil(t, f.Filters)

	f = Filter{Page: 3, PageSize: 0}.Normalize()
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 40, f.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(41), p.Total)
}

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("load product: %w", ErrNotFound)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, errors.Is(NewDomainError("NOT_FOUND", "Product not found"), ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrAlreadyExists))
}

func TestNormalizeSlug(t *testing.T) {
	s, err := NormalizeSlug("", "Summer Sale Hoodie")
	assert.NoError(t, err)
	assert.Equal(t, "summer-sale-hoodie", s)

	s, err = NormalizeSlug("  My Custom Slug ", "ignored")
	assert.NoError(t, err)
	assert.Equal(t, "my-custom-slug", s)

	_, err = NormalizeSlug("", "!!!")
	assert.Error(t, err)
}

func TestBaseAggregateRoot_StoredVersion(t *testing.T) {
	a := NewBaseAggregateRoot()
	assert.Equal(t, 1, a.GetVersion())
	assert.Zero(t, a.StoredVersion(), "never persisted")

	a.MarkStored()
	a.Modified()
	a.Modified()
	assert.Equal(t, 3, a.GetVersion())
	assert.Equal(t, 1, a.StoredVersion())

	a.Version = 7
	assert.NoError(t, a.AfterFind(nil))
	assert.Equal(t, 7, a.StoredVersion())
}
