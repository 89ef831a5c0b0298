package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit names the measure a price or quantity is expressed in.
type Unit string

const (
	UnitKilogram Unit = "kg"
	UnitGram     Unit = "g"
	UnitLitre    Unit = "litre"
	UnitPacket   Unit = "packet"
)

var (
	// ErrUnitMismatch reports a conversion that is not defined between two units.
	ErrUnitMismatch = errors.New("domain: unsupported unit conversion")
	// ErrInvalidAmount reports a price or quantity that is not a finite decimal number.
	ErrInvalidAmount = errors.New("domain: invalid amount")
)

// ParseUnit normalises a user supplied unit label.
func ParseUnit(raw string) Unit {
	return Unit(strings.ToLower(strings.TrimSpace(raw)))
}

// String implements fmt.Stringer.
func (u Unit) String() string { return string(u) }

// UnitOptions lists the units a product priced in canonical may be bought in.
// Only kilogram products gain a second option.
func UnitOptions(canonical Unit) []Unit {
	if canonical == UnitKilogram {
		return []Unit{UnitKilogram, UnitGram}
	}
	return []Unit{canonical}
}

// Offers reports whether the product can be bought in unit u.
func (p Product) Offers(u Unit) bool {
	for _, option := range UnitOptions(p.Unit) {
		if option == u {
			return true
		}
	}
	return false
}

// ConvertQuantity re-expresses qty given in from as a quantity in to.
// The only conversion defined is between kilograms and grams.
func ConvertQuantity(qty decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	switch {
	case from == to:
		return qty, nil
	case from == UnitGram && to == UnitKilogram:
		return qty.Shift(-3), nil
	case from == UnitKilogram && to == UnitGram:
		return qty.Shift(3), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %s to %s", ErrUnitMismatch, from, to)
	}
}

// LinePrice prices qty (in unit) against a product, converting into its canonical unit first.
func LinePrice(p Product, qty decimal.Decimal, unit Unit) (decimal.Decimal, error) {
	canonical, err := ConvertQuantity(qty, unit, p.Unit)
	if err != nil {
		return decimal.Zero, err
	}
	return p.UnitPrice.Mul(canonical), nil
}

// Amounts are bounded so that formatting one never builds an oversized string.
const (
	maxAmountScale    = 6
	maxAmountExponent = 12
)

var amountCeiling = decimal.New(1, maxAmountExponent)

// ParseAmount parses a decimal price or quantity, rejecting blanks, non-finite values and
// amounts outside the till's range.
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	switch strings.ToLower(strings.TrimLeft(trimmed, "+-")) {
	case "nan", "inf", "infinity":
		return decimal.Zero, fmt.Errorf("%w: %q is not finite", ErrInvalidAmount, trimmed)
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, trimmed)
	}
	if err := checkAmountRange(value); err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

// AmountFromFloat converts a float, rejecting NaN and infinities.
func AmountFromFloat(value float64) (decimal.Decimal, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v is not finite", ErrInvalidAmount, value)
	}
	amount := decimal.NewFromFloat(value)
	if err := checkAmountRange(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// checkAmountRange bounds the exponent before anything rescales or prints the value.
func checkAmountRange(value decimal.Decimal) error {
	exp := value.Exponent()
	if exp > maxAmountExponent || exp < -3*maxAmountScale || value.Abs().Cmp(amountCeiling) >= 0 {
		return fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	if !value.Equal(value.Truncate(maxAmountScale)) {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, maxAmountScale)
	}
	return nil
}
