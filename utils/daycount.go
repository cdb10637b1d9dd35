package utils

import (
	"time"
)

// CurveDayCount is the time basis for curve construction. Following market
// convention (and QuantLib), the curve time axis uses ACT/365F for
// interpolation and zero rate calculations, regardless of currency.
// Money-market legs use their own per-currency denominators separately.
const CurveDayCount = "ACT/365F"

// YearFraction computes the year fraction between two dates using the
// specified day count convention. Supported conventions: ACT/360, ACT/365F.
func YearFraction(start, end time.Time, convention string) float64 {
	days := end.Sub(start).Hours() / 24
	switch convention {
	case "ACT/360":
		return days / 360.0
	case "ACT/365F":
		return days / 365.0
	default:
		return days / 365.0
	}
}
