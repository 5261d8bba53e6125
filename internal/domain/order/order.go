package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Item is a line on an order. Product fields are a snapshot taken at checkout.
type Item struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	SKU         string          `gorm:"column:sku;type:varchar(64);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity    int             `gorm:"not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "order_items"
}

// NewItem creates an order line
func NewItem(productID uuid.UUID, name, sku string, unitPrice decimal.Decimal, quantity int) (*Item, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return &Item{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: name,
		SKU:         sku,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(4),
		CreatedAt:   time.Now(),
	}, nil
}

// Customer holds the buyer's contact details
type Customer struct {
	Email string
	Name  string
	Phone string
}

// Order is a customer purchase in a store
type Order struct {
	shared.StoreAggregateRoot
	OrderNumber     string          `gorm:"type:varchar(32);not null;index"`
	CustomerEmail   string          `gorm:"type:varchar(255);not null;index"`
	CustomerName    string          `gorm:"type:varchar(200);not null"`
	CustomerPhone   string          `gorm:"type:varchar(50)"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  Address         `gorm:"embedded;embeddedPrefix:billing_"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ShippingFee     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency        string          `gorm:"type:char(3);not null"`
	Status          Status          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	PaymentProvider Provider        `gorm:"type:varchar(20)"`
	Items           []Item          `gorm:"foreignKey:OrderID"`
	Payments        []Payment       `gorm:"foreignKey:OrderID"`
	PaidAt          *time.Time
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a pending order and computes totals from its items
func NewOrder(storeID uuid.UUID, orderNumber string, customer Customer, shipping, billing Address, items []Item, shippingFee decimal.Decimal, currency string) (*Order, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store is required")
	}
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number is required")
	}
	email := strings.ToLower(strings.TrimSpace(customer.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid customer email is required")
	}
	name := strings.TrimSpace(customer.Name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name is required")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must have at least one item")
	}
	shipping = shipping.Normalized()
	if err := shipping.Validate(); err != nil {
		return nil, err
	}
	billing = billing.Normalized()
	if billing.IsEmpty() {
		billing = shipping
	} else if err := billing.Validate(); err != nil {
		return nil, err
	}
	if shippingFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SHIPPING_FEE", "Shipping fee cannot be negative")
	}

	o := &Order{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID),
		OrderNumber:        orderNumber,
		CustomerEmail:      email,
		CustomerName:       name,
		CustomerPhone:      strings.TrimSpace(customer.Phone),
		ShippingAddress:    shipping,
		BillingAddress:     billing,
		ShippingFee:        shippingFee,
		Currency:           currency,
		Status:             StatusPending,
		PaymentStatus:      PaymentStatusUnpaid,
		Items:              make([]Item, 0, len(items)),
	}
	for _, item := range items {
		item.OrderID = o.ID
		o.Items = append(o.Items, item)
	}
	o.recalculate()
	return o, nil
}

func (o *Order) recalculate() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.ShippingFee)
}

// TransitionTo moves the order to target if the status machine allows it
func (o *Order) TransitionTo(target Status) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", "Cannot change order from "+o.Status.String()+" to "+target.String())
	}
	o.Status = target
	o.Modified()
	return nil
}

// MarkPaid records a captured payment
func (o *Order) MarkPaid(provider Provider, at time.Time) error {
	if o.Status == StatusPaid || o.PaymentStatus == PaymentStatusPaid {
		return nil
	}
	if err := o.TransitionTo(StatusPaid); err != nil {
		return err
	}
	o.PaymentStatus = PaymentStatusPaid
	o.PaymentProvider = provider
	o.PaidAt = &at
	return nil
}

// MarkPaymentFailed records a failed attempt. The order stays pending so the
// customer can retry.
func (o *Order) MarkPaymentFailed(provider Provider) {
	if o.PaymentStatus == PaymentStatusPaid || o.PaymentStatus == PaymentStatusRefunded {
		return
	}
	o.PaymentStatus = PaymentStatusFailed
	o.PaymentProvider = provider
	o.Touch()
}

// Cancel cancels the order. Only unshipped orders can be cancelled, so the
// caller always returns the items to stock.
func (o *Order) Cancel(reason string) error {
	if err := o.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		reason = reason[:500]
	}
	o.CancelReason = reason
	return nil
}

// Refund marks the order refunded
func (o *Order) Refund() error {
	if err := o.TransitionTo(StatusRefunded); err != nil {
		return err
	}
	o.PaymentStatus = PaymentStatusRefunded
	return nil
}

// MatchesEmail compares the customer email case-insensitively
func (o *Order) MatchesEmail(email string) bool {
	return strings.EqualFold(o.CustomerEmail, strings.TrimSpace(email))
}

// AmountMatches reports whether amount equals the order total at 2dp
func (o *Order) AmountMatches(amount decimal.Decimal) bool {
	return o.Total.Round(2).Equal(amount.Round(2))
}
