package view

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
)

const (
	// CurrencySymbol prefixes every rendered amount.
	CurrencySymbol = "₹"
	// BillDateLayout renders bill timestamps as day/month/year.
	BillDateLayout = "02/01/2006 15:04:05"
)

// Amount renders d with two decimals, rounding half away from zero.
func Amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Money renders d as a rupee amount such as "₹135.00".
func Money(d decimal.Decimal) string {
	return CurrencySymbol + Amount(d)
}

// Quantity renders a quantity with trailing zeros trimmed, followed by its unit.
func Quantity(qty decimal.Decimal, unit domain.Unit) string {
	label := strings.TrimSpace(unit.String())
	if label == "" {
		return qty.String()
	}
	return qty.String() + " " + label
}

// BillDate formats t in loc, falling back to UTC.
func BillDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(BillDateLayout)
}

func unitLabels(canonical domain.Unit) []string {
	options := domain.UnitOptions(canonical)
	labels := make([]string, len(options))
	for i, option := range options {
		labels[i] = option.String()
	}
	return labels
}
