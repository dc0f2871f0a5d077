package retirement

import "fmt"

// Percent is a percentage expressed in points: 7 means 7%.
//
// Return rate schedules are entered in points, while projections carry the
// rate actually applied as a fraction: 0.07 for 7%.
type Percent float64

// RateOf converts a fractional rate, as found in a YearProjection, to points.
func RateOf(fraction Number) Percent { return Percent(fraction * 100) }

// Equal compares to the hundredth of a basis point.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}
