package rules

import (
	"github.com/shopspring/decimal"
)

// Breakpoint is one tier of the currency scale: amounts >= Min are divided by
// Divisor and printed with one decimal and Suffix.
type Breakpoint struct {
	Min     int64
	Divisor int64
	Suffix  string
}

// DefaultBreakpoints is the crore / lakh / thousand scale, checked top-down.
var DefaultBreakpoints = []Breakpoint{
	{Min: 10_000_000, Divisor: 10_000_000, Suffix: "Cr"},
	{Min: 100_000, Divisor: 100_000, Suffix: "L"},
	{Min: 1_000, Divisor: 1_000, Suffix: "K"},
}

// CurrencySymbol prefixes every formatted amount in a report. The PDF core
// fonts cannot encode the rupee sign, so the ASCII abbreviation is used.
const CurrencySymbol = "Rs. "

// Formatter scales integer amounts with a fixed breakpoint table. One
// Formatter is used for a whole document so every amount shares a scale.
type Formatter struct {
	tiers []tier
}

type tier struct {
	min     decimal.Decimal
	divisor decimal.Decimal
	suffix  string
}

// NewFormatter builds a Formatter from breakpoints, which must be ordered by
// descending Min. A nil slice selects DefaultBreakpoints.
func NewFormatter(breakpoints []Breakpoint) Formatter {
	if breakpoints == nil {
		breakpoints = DefaultBreakpoints
	}
	tiers := make([]tier, len(breakpoints))
	for i, bp := range breakpoints {
		tiers[i] = tier{
			min:     decimal.NewFromInt(bp.Min),
			divisor: decimal.NewFromInt(bp.Divisor),
			suffix:  bp.Suffix,
		}
	}
	return Formatter{tiers: tiers}
}

// Format scales amount to the first tier it reaches, rounding half-up to one
// decimal: 999 → "999", 1000 → "1.0K", 99999 → "100.0K", 100000 → "1.0L".
// Negative amounts are scaled on their magnitude and keep a leading "-".
func (f Formatter) Format(amount int64) string {
	d := decimal.NewFromInt(amount)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	for _, t := range f.tiers {
		if d.GreaterThanOrEqual(t.min) {
			return sign + d.Div(t.divisor).StringFixed(1) + t.suffix
		}
	}
	return sign + d.String()
}

// Money is Format with the currency symbol.
func (f Formatter) Money(amount int64) string {
	return CurrencySymbol + f.Format(amount)
}

// Abs returns the magnitude of amount. math.MinInt64 has no positive
// counterpart and is returned unchanged.
func Abs(amount int64) int64 {
	if amount < 0 && -amount > 0 {
		return -amount
	}
	return amount
}
