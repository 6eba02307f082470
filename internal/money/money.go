// Package money renders stored decimal amounts for display. Stored values keep
// their full precision; only the rendered string is rounded.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const CediSymbol = "GH₵"

// FormatCedi renders an amount as a two-decimal Ghanaian cedi string with
// thousands separators, e.g. GH₵1,234.50 or -GH₵3.00.
func FormatCedi(amount decimal.Decimal) string {
	fixed := amount.StringFixedBank(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if negative && !amount.Round(2).IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(CediSymbol)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
