package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Provider identifies a payment gateway
type Provider string

const (
	ProviderStripe     Provider = "STRIPE"
	ProviderSSLCommerz Provider = "SSLCOMMERZ"
)

// IsValid checks if the provider is supported
func (p Provider) IsValid() bool {
	return p == ProviderStripe || p == ProviderSSLCommerz
}

// PaymentState is the state of a single payment attempt
type PaymentState string

const (
	PaymentPending   PaymentState = "PENDING"
	PaymentSucceeded PaymentState = "SUCCEEDED"
	PaymentFailed    PaymentState = "FAILED"
	PaymentRefunded  PaymentState = "REFUNDED"
)

// Payment is one attempt to pay for an order through a gateway.
// (provider, provider_ref) is unique.
type Payment struct {
	shared.BaseEntity
	StoreID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Provider    Provider        `gorm:"type:varchar(20);not null;uniqueIndex:idx_payment_provider_ref"`
	ProviderRef *string         `gorm:"type:varchar(255);uniqueIndex:idx_payment_provider_ref"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency    string          `gorm:"type:char(3);not null"`
	Status      PaymentState    `gorm:"type:varchar(20);not null"`
	RawStatus   string          `gorm:"type:varchar(100)"`
	FailureNote string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a pending payment attempt
func NewPayment(storeID, orderID uuid.UUID, provider Provider, amount decimal.Decimal, currency string) (*Payment, error) {
	if !provider.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Unsupported payment provider")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	return &Payment{
		BaseEntity: shared.NewBaseEntity(),
		StoreID:    storeID,
		OrderID:    orderID,
		Provider:   provider,
		Amount:     amount,
		Currency:   currency,
		Status:     PaymentPending,
	}, nil
}

// AttachProviderRef records the gateway's reference (session id, tran_id)
func (p *Payment) AttachProviderRef(ref string) {
	p.ProviderRef = &ref
	p.Touch()
}

// Ref returns the provider reference or an empty string
func (p *Payment) Ref() string {
	if p.ProviderRef == nil {
		return ""
	}
	return *p.ProviderRef
}

// Succeed marks the payment captured
func (p *Payment) Succeed(rawStatus string) error {
	if p.Status == PaymentSucceeded {
		return nil
	}
	if p.Status != PaymentPending && p.Status != PaymentFailed {
		return shared.NewDomainError("INVALID_STATE", "Payment cannot succeed from "+string(p.Status))
	}
	p.Status = PaymentSucceeded
	p.RawStatus = rawStatus
	p.FailureNote = ""
	p.Touch()
	return nil
}

// Fail marks the payment failed. A succeeded payment is left untouched.
func (p *Payment) Fail(rawStatus, note string) error {
	if p.Status == PaymentSucceeded || p.Status == PaymentRefunded {
		return shared.NewDomainError("INVALID_STATE", "Payment is already settled")
	}
	p.Status = PaymentFailed
	p.RawStatus = rawStatus
	if len(note) > 500 {
		note = note[:500]
	}
	p.FailureNote = note
	p.Touch()
	return nil
}

// Refund marks a captured payment refunded
func (p *Payment) Refund(rawStatus string) error {
	if p.Status == PaymentRefunded {
		return nil
	}
	if p.Status != PaymentSucceeded {
		return shared.NewDomainError("INVALID_STATE", "Only captured payments can be refunded")
	}
	p.Status = PaymentRefunded
	p.RawStatus = rawStatus
	p.Touch()
	return nil
}
