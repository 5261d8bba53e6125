package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	storeID := uuid.New()

	t.Run("creates draft product", func(t *testing.T) {
		p, err := NewProduct(storeID, "tee-001", "Classic Tee", "", decimal.RequireFromString("19.99"))
		require.NoError(t, err)
		assert.Equal(t, storeID, p.StoreID)
		assert.Equal(t, "TEE-001", p.SKU)
		assert.Equal(t, "classic-tee", p.Slug)
		assert.Equal(t, ProductStatusDraft, p.Status)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("19.99")))
		assert.False(t, p.IsPurchasable())
	})

	t.Run("fails with empty sku", func(t *testing.T) {
		_, err := NewProduct(storeID, "", "Classic Tee", "", decimal.Zero)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SKU cannot be empty")
	})

	t.Run("fails with invalid sku characters", func(t *testing.T) {
		_, err := NewProduct(storeID, "TEE 001", "Classic Tee", "", decimal.Zero)
		require.Error(t, err)
	})

	t.Run("fails with negative price", func(t *testing.T) {
		_, err := NewProduct(storeID, "TEE-001", "Classic Tee", "", decimal.NewFromInt(-1))
		require.Error(t, err)
	})
}

func TestProduct_SetPricing(t *testing.T) {
	p, err := NewProduct(uuid.New(), "TEE-001", "Classic Tee", "", decimal.NewFromInt(10))
	require.NoError(t, err)

	lower := decimal.NewFromInt(5)
	assert.Error(t, p.SetPricing(decimal.NewFromInt(10), &lower))

	higher := decimal.NewFromInt(15)
	require.NoError(t, p.SetPricing(decimal.NewFromInt(12), &higher))
	assert.True(t, p.CompareAtPrice.Equal(higher))

	require.NoError(t, p.SetPricing(decimal.NewFromInt(12), nil))
	assert.Nil(t, p.CompareAtPrice)
}

func TestProduct_Stock(t *testing.T) {
	p, err := NewProduct(uuid.New(), "TEE-001", "Classic Tee", "", decimal.NewFromInt(10))
	require.NoError(t, err)

	require.NoError(t, p.SetStock(3))
	assert.Equal(t, 3, p.Stock)
	require.NoError(t, p.SetStock(0))
	assert.Equal(t, 0, p.Stock)
	assert.Error(t, p.SetStock(-1))
}

func TestProduct_PublishArchive(t *testing.T) {
	p, err := NewProduct(uuid.New(), "TEE-001", "Classic Tee", "", decimal.NewFromInt(10))
	require.NoError(t, err)

	require.NoError(t, p.Publish())
	assert.True(t, p.IsPurchasable())
	assert.Error(t, p.Publish())

	require.NoError(t, p.Archive())
	assert.False(t, p.IsPurchasable())
	assert.Error(t, p.Archive())
}

func TestCategory_SetParent(t *testing.T) {
	storeID := uuid.New()
	parent, err := NewCategory(storeID, "Apparel", "", 0)
	require.NoError(t, err)
	child, err := NewCategory(storeID, "Shirts", "", 1)
	require.NoError(t, err)

	require.NoError(t, child.SetParent(parent))
	assert.Equal(t, parent.ID, *child.ParentID)

	assert.Error(t, child.SetParent(child))
	assert.Error(t, parent.SetParent(child))

	other, err := NewCategory(uuid.New(), "Other", "", 0)
	require.NoError(t, err)
	assert.Error(t, child.SetParent(other))
}

func TestAttribute(t *testing.T) {
	storeID := uuid.New()
	size, err := NewAttribute(storeID, "Size", []string{"S", " M ", "", "S", "L"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "M", "L"}, size.Values)
	assert.Equal(t, 1, size.GetVersion())

	_, err = NewAttribute(storeID, "Color", nil)
	assert.Error(t, err)

	defined := []Attribute{*size}
	assert.NoError(t, ValidateAttributes(map[string]string{"Size": "M"}, defined))
	assert.Error(t, ValidateAttributes(map[string]string{"Size": "XXL"}, defined))
	assert.Error(t, ValidateAttributes(map[string]string{"Color": "Red"}, defined))
}
