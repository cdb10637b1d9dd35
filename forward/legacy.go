package forward

import (
	"fmt"
	"time"

	"github.com/meenmo/fxcurve/fx"
	"github.com/meenmo/fxcurve/quote"
	"github.com/meenmo/fxcurve/utils"
)

// BuildLegacyExp reproduces the legacy exponential build.
//
// Discounting is always exponential, over two independent windows: the
// expiry window (today to expiry) for the premium discount factors, and the
// forward window (spot date to settlement) for forwards and swap points.
// Day-count denominators come from the per-currency table, with the
// domestic leg on the quote currency's basis and the foreign leg on the
// base currency's basis. That asymmetry is a legacy rule and is kept
// intentionally.
func BuildLegacyExp(pair fx.Pair, today, expiry, spotDate, settlement time.Time, spot, rd, rf quote.TwoWay) (Result, error) {
	if expiry.Before(today) {
		return Result{}, fmt.Errorf("BuildLegacyExp: expiry %s before today %s",
			expiry.Format("2006-01-02"), today.Format("2006-01-02"))
	}
	if settlement.Before(spotDate) {
		return Result{}, fmt.Errorf("BuildLegacyExp: settlement %s before spot date %s",
			settlement.Format("2006-01-02"), spotDate.Format("2006-01-02"))
	}
	if err := validateInputs(spot, rd, rf); err != nil {
		return Result{}, fmt.Errorf("BuildLegacyExp: %w", err)
	}

	basisD := fx.DayBasis(pair.Quote)
	basisF := fx.DayBasis(pair.Base)

	expiryDays := utils.Days(today, expiry)
	fwdDays := utils.Days(spotDate, settlement)

	// Premium DFs discount over the expiry window.
	dfd := sidedDF(rd, expiryDays/basisD, Continuous)
	dff := sidedDF(rf, expiryDays/basisF, Continuous)

	// Forward and swap points use the forward window.
	res := assemble(spot,
		sidedDF(rd, fwdDays/basisD, Continuous),
		sidedDF(rf, fwdDays/basisF, Continuous))
	res.DomesticDF = dfd
	res.ForeignDF = dff
	return res, nil
}
