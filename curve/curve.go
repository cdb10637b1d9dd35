package curve

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/meenmo/fxcurve/utils"
)

// ErrNotBuilt is returned by curve lookups when fewer than two knots exist.
var ErrNotBuilt = errors.New("curve: not built")

// Discount factors are clamped into [minDF, 1] so log-space interpolation
// stays well-defined whatever the source delivered.
const minDF = 1e-12

// Pillar is one bootstrapped curve node.
type Pillar struct {
	Date  time.Time
	Tenor string
	// Zero is the continuously compounded zero rate to Date, as a decimal.
	Zero float64
	DF   float64
}

// knot is a log-DF interpolation node in curve time (ACT/365F years from
// the valuation date). knots[0] is always the synthetic anchor (0, 0):
// DF = 1 at the valuation date.
type knot struct {
	t     float64
	logDF float64
}

// Curve is a discount-factor curve with piecewise log-linear interpolation.
//
// Between the anchor and the first pillar the segment runs straight from the
// origin; beyond the last pillar the last log-DF is held flat.
type Curve struct {
	valuationDate time.Time
	spotDate      time.Time
	pillars       []Pillar
	knots         []knot
}

// ValuationDate returns the curve's valuation date.
func (c *Curve) ValuationDate() time.Time {
	return c.valuationDate
}

// SpotDate returns the spot date the tenor pillars were anchored to.
func (c *Curve) SpotDate() time.Time {
	return c.spotDate
}

// Pillars returns the bootstrapped pillars in date order.
func (c *Curve) Pillars() []Pillar {
	out := make([]Pillar, len(c.pillars))
	copy(out, c.pillars)
	return out
}

// DF returns the discount factor from the valuation date to d.
func (c *Curve) DF(d time.Time) (float64, error) {
	if len(c.knots) < 2 {
		return 0, ErrNotBuilt
	}
	t := utils.YearFraction(c.valuationDate, d, utils.CurveDayCount)
	return math.Exp(c.logDFAt(t)), nil
}

// ZeroRateContinuous returns the continuously compounded zero rate to d.
// At the valuation date itself the rate is 0 by convention.
func (c *Curve) ZeroRateContinuous(d time.Time) (float64, error) {
	if len(c.knots) < 2 {
		return 0, ErrNotBuilt
	}
	t := utils.YearFraction(c.valuationDate, d, utils.CurveDayCount)
	if t <= 0 {
		return 0, nil
	}
	return -c.logDFAt(t) / t, nil
}

// logDFAt interpolates log-DF at curve time t.
func (c *Curve) logDFAt(t float64) float64 {
	if t <= 0 {
		return 0
	}
	last := c.knots[len(c.knots)-1]
	if t >= last.t {
		// Flat extrapolation of the last log-DF, no slope.
		return last.logDF
	}

	// First knot with knots[i].t >= t. The anchor at t=0 guarantees i >= 1.
	i := sort.Search(len(c.knots), func(i int) bool {
		return c.knots[i].t >= t
	})
	k1, k2 := c.knots[i-1], c.knots[i]
	if k2.t == k1.t {
		return k1.logDF
	}
	w := (t - k1.t) / (k2.t - k1.t)
	return k1.logDF + w*(k2.logDF-k1.logDF)
}
