package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Stripe metadata keys set on every session so webhooks can find our rows
const (
	MetadataStoreID   = "store_id"
	MetadataOrderID   = "order_id"
	MetadataPaymentID = "payment_id"
	MetadataPlan      = "plan"
)

// zeroDecimalCurrencies are charged in whole units
// (https://docs.stripe.com/currencies#zero-decimal)
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

func currencyExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// ToMinorUnits converts an amount to the integer unit Stripe charges in
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(currencyExponent(currency)).Round(0).IntPart()
}

// FromMinorUnits converts a Stripe amount back to a decimal
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -currencyExponent(currency))
}
