package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
)

// AddressInput is a postal address in requests
type AddressInput struct {
	Line1      string `json:"line1" binding:"required,max=255"`
	Line2      string `json:"line2" binding:"max=255"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"required,len=2"`
}

func (a *AddressInput) toDomain() order.Address {
	if a == nil {
		return order.Address{}
	}
	return order.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// PlaceOrderRequest turns a cart into an order
type PlaceOrderRequest struct {
	CartToken       string        `json:"cart_token" binding:"required"`
	Email           string        `json:"email" binding:"required,email,max=255"`
	Name            string        `json:"name" binding:"required,max=200"`
	Phone           string        `json:"phone" binding:"max=50"`
	ShippingAddress AddressInput  `json:"shipping_address" binding:"required"`
	BillingAddress  *AddressInput `json:"billing_address"`
	Provider        string        `json:"provider" binding:"required,oneof=STRIPE SSLCOMMERZ"`
}

// UpdateStatusRequest moves an order through its status machine
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PAID PROCESSING SHIPPED DELIVERED"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// AddressResponse is a postal address in responses
type AddressResponse struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// ItemResponse is an order line
type ItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PaymentResponse is a payment attempt
type PaymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	Provider    string          `json:"provider"`
	ProviderRef string          `json:"provider_ref,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	RawStatus   string          `json:"raw_status,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderResponse is an order in dashboard responses
type OrderResponse struct {
	ID              uuid.UUID         `json:"id"`
	OrderNumber     string            `json:"order_number"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone,omitempty"`
	ShippingAddress AddressResponse   `json:"shipping_address"`
	BillingAddress  AddressResponse   `json:"billing_address"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	ShippingFee     decimal.Decimal   `json:"shipping_fee"`
	Total           decimal.Decimal   `json:"total"`
	Currency        string            `json:"currency"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentProvider string            `json:"payment_provider,omitempty"`
	Items           []ItemResponse    `json:"items"`
	Payments        []PaymentResponse `json:"payments,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason    string            `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Version         int               `json:"version"`
}

// PlaceOrderResult is the checkout outcome: the order and where to pay it
type PlaceOrderResult struct {
	Order      OrderResponse `json:"order"`
	PaymentURL string        `json:"payment_url"`
}

// ConfirmationResponse is what a customer sees after checkout
type ConfirmationResponse struct {
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	Items         []ItemResponse  `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toAddressResponse(a order.Address) AddressResponse {
	return AddressResponse(a)
}

func toItemResponses(items []order.Item) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i, item := range items {
		out[i] = ItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		}
	}
	return out
}

// ToPaymentResponse converts a domain Payment
func ToPaymentResponse(p *order.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		Provider:    string(p.Provider),
		ProviderRef: p.Ref(),
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      string(p.Status),
		RawStatus:   p.RawStatus,
		CreatedAt:   p.CreatedAt,
	}
}

// ToOrderResponse converts a domain Order
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerEmail:   o.CustomerEmail,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		ShippingAddress: toAddressResponse(o.ShippingAddress),
		BillingAddress:  toAddressResponse(o.BillingAddress),
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		Total:           o.Total,
		Currency:        o.Currency,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		PaymentProvider: string(o.PaymentProvider),
		Items:           toItemResponses(o.Items),
		PaidAt:          o.PaidAt,
		CancelledAt:     o.CancelledAt,
		CancelReason:    o.CancelReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
	for i := range o.Payments {
		resp.Payments = append(resp.Payments, ToPaymentResponse(&o.Payments[i]))
	}
	return resp
}

// ToConfirmationResponse converts a domain Order to the customer view
func ToConfirmationResponse(o *order.Order) ConfirmationResponse {
	return ConfirmationResponse{
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Items:         toItemResponses(o.Items),
		Subtotal:      o.Subtotal,
		ShippingFee:   o.ShippingFee,
		Total:         o.Total,
		Currency:      o.Currency,
		PaidAt:        o.PaidAt,
		CreatedAt:     o.CreatedAt,
	}
}
