// Package core holds the cross-cutting contracts (external provider ports,
// the CoreContext bundle, and monetary rounding rules) that every savings
// planner module depends on without depending on each other.
package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every stored or compared
// monetary amount is rounded to. Intermediate arithmetic is kept at full
// decimal precision; only persisted and returned values are rounded.
const MoneyScale = 8

// Epsilon is the tolerance used when comparing two monetary amounts for
// practical equality, guarding against accumulated rounding noise.
var Epsilon = decimal.New(1, -8)

// Round applies banker's rounding at MoneyScale, the rounding mode used
// everywhere a rate conversion or allocation split produces a final figure.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyScale)
}

// AlmostEqual reports whether a and b differ by less than Epsilon.
func AlmostEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// AlmostZero reports whether d is within Epsilon of zero.
func AlmostZero(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// ClampNonNegative floors d at zero, used whenever a remaining/funded
// amount must never go negative due to rounding or an over-contribution.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RateSignificantDigits: cross-currency rounding during multi-hop
// conversion uses banker's rounding to this many
// significant digits at each hop, rather than a fixed decimal-place count,
// so a rate's precision doesn't collapse for very small or very large
// quotes (e.g. sats-per-fiat pairs).
const RateSignificantDigits = 8

// RoundRate applies banker's rounding to RateSignificantDigits significant
// digits, the rounding rule every rate-provider hop applies to its
// result before it is cached or composed with another hop.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	f, _ := d.Abs().Float64()
	if f == 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return d
	}
	magnitude := int(math.Floor(math.Log10(f)))
	places := RateSignificantDigits - magnitude - 1
	if places < 0 {
		places = 0
	}
	if places > 18 {
		places = 18
	}
	return d.RoundBank(int32(places))
}
