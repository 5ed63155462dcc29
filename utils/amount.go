// Package utils holds amount parsing and formatting helpers shared by
// the flows and analytics packages. Amounts move on-chain as integers
// in the token's smallest unit; everything user-facing is decimal.
package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string into the token's
// smallest unit at the given decimal count. Rejects empty, malformed,
// and non-positive values.
func ParseAmount(amount string, decimals int32) (*big.Int, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if !dec.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	scaled := dec.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders a smallest-unit amount as an exact decimal
// string at the given decimal count.
func FormatAmount(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// DisplayAmount renders a smallest-unit amount with two fraction digits
// for dashboard display, e.g. 1_000_000 at 6 decimals becomes "1.00".
func DisplayAmount(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).StringFixed(2)
}

// ScaledDecimal converts a smallest-unit amount into a decimal at the
// token's precision, for aggregation arithmetic.
func ScaledDecimal(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}
