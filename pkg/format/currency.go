// Package format renders engine numbers for display. Rounding happens here
// and nowhere else.
package format

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

// NotAvailable is rendered for absent and non-finite values.
const NotAvailable = "N/A"

// Currency returns a currency string with a dollar sign, thousands separators
// and parenthesized negatives (e.g., "($1,234.56)").
func Currency(amount float64) string {
	if !mathutil.IsFinite(amount) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(amount).Round(2)
	formatted := "$" + group(d.Abs().StringFixed(2))
	if d.IsNegative() {
		return "(" + formatted + ")"
	}
	return formatted
}

// Number renders at most two decimals with thousands separators, trimming
// trailing zeros (150000 -> "150,000", 8.5 -> "8.5").
func Number(value float64) string {
	if !mathutil.IsFinite(value) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(value).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + group(d.Abs().String())
}

// Percent renders a percentage value (9 -> "9%").
func Percent(value float64) string {
	if !mathutil.IsFinite(value) {
		return NotAvailable
	}
	return Number(value) + "%"
}

// Multiple renders a pricing multiple (8.5 -> "8.5x").
func Multiple(value float64) string {
	if !mathutil.IsFinite(value) {
		return NotAvailable
	}
	return Number(value) + "x"
}

// CurrencyPtr is Currency for optional values.
func CurrencyPtr(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return Currency(*p)
}

// NumberPtr is Number for optional values.
func NumberPtr(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return Number(*p)
}

// PercentPtr is Percent for optional values.
func PercentPtr(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return Percent(*p)
}

// MultiplePtr is Multiple for optional values.
func MultiplePtr(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return Multiple(*p)
}

// group inserts thousands separators into an unsigned decimal string.
func group(value string) string {
	parts := strings.SplitN(value, ".", 2)
	intPart := parts[0]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if len(parts) == 2 {
		return intPart + "." + parts[1]
	}
	return intPart
}
