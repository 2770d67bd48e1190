// Package core provides the ledger domain types and balance arithmetic.
//
// Balances come back from a spreadsheet and are not guaranteed to be
// numbers. A Balance keeps the raw text for display and coerces to a
// decimal for arithmetic, counting anything non-numeric as zero.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountExponent bounds the decimal exponent of any amount. Rendering
// a decimal writes out every digit of its exponent, so "1e99999999" would
// otherwise take minutes and gigabytes to print.
const maxAmountExponent = 308

var ErrAmountOutOfRange = errors.New("amount out of range")

// ParseAmount parses a decimal amount, rejecting exponents beyond
// ±maxAmountExponent.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountOutOfRange, s)
	}
	return d, nil
}

// Balance is an account balance as reported by the ledger.
type Balance struct {
	raw string
}

// NewBalance wraps a raw balance value.
func NewBalance(raw string) Balance {
	return Balance{raw: raw}
}

// BalanceFromDecimal wraps a decimal value.
func BalanceFromDecimal(d decimal.Decimal) Balance {
	return Balance{raw: d.String()}
}

// String returns the balance exactly as the ledger sent it.
func (b Balance) String() string {
	return b.raw
}

// Decimal coerces the balance to a number. Empty, null, non-numeric and
// out-of-range values are zero.
//
//	NewBalance("500").Decimal()        -> 500
//	NewBalance(" 12.5 ").Decimal()     -> 12.5
//	NewBalance("n/a").Decimal()        -> 0
//	NewBalance("1e99999999").Decimal() -> 0
func (b Balance) Decimal() decimal.Decimal {
	if strings.TrimSpace(b.raw) == "" {
		return decimal.Zero
	}
	d, err := ParseAmount(b.raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// UnmarshalJSON accepts numbers, strings, booleans and null.
func (b *Balance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		b.raw = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		b.raw = s
	default:
		b.raw = string(data)
	}
	return nil
}

// MarshalJSON emits numeric balances as numbers and everything else as strings.
func (b Balance) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(b.raw)
	if s == "" {
		return []byte("null"), nil
	}
	if _, err := decimal.NewFromString(s); err == nil && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return json.Marshal(b.raw)
}

// TotalBalance sums the coerced balance of every account.
func TotalBalance(accounts []Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance.Decimal())
	}
	return total
}

// FormatAmount renders a decimal the way the dashboard displays it,
// without trailing zeros.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
