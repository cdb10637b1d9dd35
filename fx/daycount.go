package fx

// Money-market day-count denominators per currency. The listed currencies
// quote deposits on ACT/365; everything else uses ACT/360.
var basis365 = map[string]struct{}{
	"GBP": {},
	"AUD": {},
	"NZD": {},
	"CAD": {},
	"HKD": {},
	"SGD": {},
	"ZAR": {},
	"ILS": {},
}

// DayBasis returns the money-market day-count denominator for ccy.
func DayBasis(ccy string) float64 {
	if _, ok := basis365[ccy]; ok {
		return 365
	}
	return 360
}
