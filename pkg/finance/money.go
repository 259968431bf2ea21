// Package finance holds kontext's decimal-precision amount handling: Money
// and ParseAmount parse and validate decimal-string amounts. Callers do
// not all stay in decimal: compliance threshold predicates and the trust
// scorer and anomaly detector convert amounts to float64 before comparing
// or averaging them.
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary (or token) amount carried as a decimal string,
// per the data model's "amounts are decimal strings, arithmetic converts
// lazily to arbitrary-precision decimals" rule. It never uses float64.
type Money struct {
	amount   decimal.Decimal
	Currency string // ISO 4217 code or a token symbol (USDC, DAI, ...)
}

// NewMoney parses a decimal string amount for the given currency/token.
func NewMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("finance: invalid amount %q: %w", amount, err)
	}
	return Money{amount: d, Currency: currency}, nil
}

// MustMoney is NewMoney but panics on a malformed literal; for tests and
// compile-time constants only.
func MustMoney(amount, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// String renders the amount back to its canonical decimal string form.
func (m Money) String() string {
	return m.amount.String()
}

// Decimal exposes the underlying arbitrary-precision value for arithmetic
// that doesn't fit the Money API (e.g. coefficient-of-variation in the
// trust scorer).
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Add adds two Money amounts. Returns an error on currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("finance: currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{amount: m.amount.Add(other.amount), Currency: m.Currency}, nil
}

// Sub subtracts other from m. Returns an error on currency mismatch.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("finance: currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{amount: m.amount.Sub(other.amount), Currency: m.Currency}, nil
}

// Cmp compares m to other; panics on currency mismatch since ordering
// across currencies is meaningless without an exchange rate.
func (m Money) Cmp(other Money) int {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("finance: cannot compare %s to %s", m.Currency, other.Currency))
	}
	return m.amount.Cmp(other.amount)
}

// GreaterThanOrEqual reports whether m >= threshold, regardless of currency
// label — amount thresholds in this system are denominated in USD-stable
// tokens, so callers compare like-for-like.
func (m Money) GreaterThanOrEqual(threshold decimal.Decimal) bool {
	return m.amount.Cmp(threshold) >= 0
}

// IsZero returns true if the amount is 0.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is > 0.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is < 0.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// DecimalPlaces returns the number of digits after the decimal point.
func (m Money) DecimalPlaces() int32 {
	return -m.amount.Exponent()
}

// MarshalJSON encodes Money as its decimal string, not a nested object —
// the wire/data model carries amounts as plain decimal strings.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.amount.String() + `"`), nil
}

// ParseAmount validates an amount string per the amount_valid compliance
// check: non-empty, parses as a positive decimal with at most 18 fractional
// digits.
func ParseAmount(amount string) (decimal.Decimal, error) {
	if amount == "" {
		return decimal.Decimal{}, fmt.Errorf("finance: amount must not be empty")
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("finance: amount %q is not a valid decimal: %w", amount, err)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("finance: amount %q must be positive", amount)
	}
	if -d.Exponent() > 18 {
		return decimal.Decimal{}, fmt.Errorf("finance: amount %q has more than 18 fractional digits", amount)
	}
	return d, nil
}
