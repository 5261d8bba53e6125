package cart

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// TTL is how long an untouched cart stays usable
const TTL = 30 * 24 * time.Hour

// MaxItemQuantity caps a single line
const MaxItemQuantity = 999

// Item is a line in a cart. UnitPrice is the product price when the line was last touched.
type Item struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	CartID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "cart_items"
}

// LineTotal returns quantity * unit price
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a guest shopping cart addressed by an opaque token
type Cart struct {
	shared.BaseEntity
	StoreID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Currency  string    `gorm:"type:char(3);not null"`
	Items     []Item    `gorm:"foreignKey:CartID"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Cart) TableName() string {
	return "carts"
}

// NewCart creates an empty cart for a store
func NewCart(storeID uuid.UUID, currency string) (*Cart, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store is required")
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	base := shared.NewBaseEntity()
	return &Cart{
		BaseEntity: base,
		StoreID:    storeID,
		Token:      token,
		Currency:   currency,
		Items:      make([]Item, 0),
		ExpiresAt:  base.CreatedAt.Add(TTL),
	}, nil
}

// IsExpired reports whether the cart is past its expiry
func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// AddItem adds quantity of a product, merging with an existing line.
// available is the product's current stock.
func (c *Cart) AddItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal, available int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return c.setQuantity(i, c.Items[i].Quantity+quantity, unitPrice, available)
		}
	}
	if quantity > available {
		return shared.ErrInsufficientStock
	}
	if quantity > MaxItemQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity exceeds the per-item limit")
	}
	now := time.Now()
	c.Items = append(c.Items, Item{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	})
	c.touch()
	return nil
}

// UpdateItem sets the quantity of an existing line. Zero removes it.
func (c *Cart) UpdateItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal, available int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			if quantity == 0 {
				c.removeAt(i)
				return nil
			}
			return c.setQuantity(i, quantity, unitPrice, available)
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Product is not in the cart")
}

// RemoveItem removes a product line
func (c *Cart) RemoveItem(productID uuid.UUID) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.removeAt(i)
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Product is not in the cart")
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = c.Items[:0]
	c.touch()
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Subtotal sums the line totals
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount sums the quantities
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) setQuantity(i, quantity int, unitPrice decimal.Decimal, available int) error {
	if quantity > available {
		return shared.ErrInsufficientStock
	}
	if quantity > MaxItemQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity exceeds the per-item limit")
	}
	c.Items[i].Quantity = quantity
	c.Items[i].UnitPrice = unitPrice
	c.Items[i].UpdatedAt = time.Now()
	c.touch()
	return nil
}

func (c *Cart) removeAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.touch()
}

func (c *Cart) touch() {
	now := time.Now()
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(TTL)
}

func newToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
