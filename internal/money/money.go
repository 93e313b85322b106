// Package money defines the ledger's fixed-point arithmetic rules.
// All balances and amounts are decimals at currency minor-unit
// precision; anything that cannot be represented exactly at that
// precision is rejected, never rounded.
package money

import "github.com/shopspring/decimal"

// Scale is the number of decimal places stored for every balance and
// amount (currency minor units).
const Scale = 2

var minorUnits = decimal.New(1, Scale) // 10^Scale

// Exact reports whether d is exactly representable at Scale decimal
// places.
func Exact(d decimal.Decimal) bool {
	scaled := d.Mul(minorUnits)
	return scaled.Equal(scaled.Floor())
}

// ValidAmount reports whether d is usable as an operation amount:
// strictly positive and exact at Scale.
func ValidAmount(d decimal.Decimal) bool {
	return d.Sign() > 0 && Exact(d)
}

// Format renders d with exactly Scale decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
