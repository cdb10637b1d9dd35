package curve

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/fxcurve/calendar"
	"github.com/meenmo/fxcurve/utils"
)

// Row is one raw tenor row from a market-data source. Nil fields are absent
// in the feed; at least one of {Date, Tenor} and one of {Rate, DF} must
// resolve for the row to be usable.
type Row struct {
	Tenor string     `json:"tenor"`
	Date  *time.Time `json:"date,omitempty"`
	Rate  *float64   `json:"rate,omitempty"`
	DF    *float64   `json:"discount_factor,omitempty"`
}

// Build bootstraps a discount-factor curve from raw tenor rows.
//
// Rows without an explicit date are anchored to the spot date (valuation
// date + 2 business days). Rates are auto-scaled: magnitudes above 2 are
// read as percent, and raw values that still exceed 20 after the percent
// step are read as basis points. Unusable rows are a hard failure; this is
// the input stage, not the deriver's clamp-and-continue stage.
func Build(rows []Row, valuationDate time.Time, cal calendar.Calendar) (*Curve, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("Build: no tenor rows")
	}

	spot := cal.AddBusinessDays(valuationDate, 2)

	pillars := make([]Pillar, 0, len(rows))
	for _, row := range rows {
		date, err := resolveRowDate(row, spot, cal)
		if err != nil {
			return nil, fmt.Errorf("Build: row %q: %w", row.Tenor, err)
		}
		if !date.After(valuationDate) {
			return nil, fmt.Errorf("Build: row %q: pillar %s on or before valuation date",
				row.Tenor, date.Format("2006-01-02"))
		}
		df, err := resolveRowDF(row, valuationDate, date)
		if err != nil {
			return nil, fmt.Errorf("Build: row %q: %w", row.Tenor, err)
		}
		t := utils.YearFraction(valuationDate, date, utils.CurveDayCount)
		pillars = append(pillars, Pillar{
			Date:  date,
			Tenor: row.Tenor,
			Zero:  -math.Log(df) / t,
			DF:    df,
		})
	}

	sort.Slice(pillars, func(i, j int) bool {
		return pillars[i].Date.Before(pillars[j].Date)
	})
	for i := 1; i < len(pillars); i++ {
		if pillars[i].Date.Equal(pillars[i-1].Date) {
			return nil, fmt.Errorf("Build: duplicate pillar date %s (%q, %q)",
				pillars[i].Date.Format("2006-01-02"), pillars[i-1].Tenor, pillars[i].Tenor)
		}
	}

	knots := make([]knot, 0, len(pillars)+1)
	knots = append(knots, knot{t: 0, logDF: 0})
	for _, p := range pillars {
		knots = append(knots, knot{
			t:     utils.YearFraction(valuationDate, p.Date, utils.CurveDayCount),
			logDF: math.Log(p.DF),
		})
	}
	if len(knots) < 2 {
		return nil, fmt.Errorf("Build: no usable tenor rows")
	}

	return &Curve{
		valuationDate: valuationDate,
		spotDate:      spot,
		pillars:       pillars,
		knots:         knots,
	}, nil
}

func resolveRowDate(row Row, spot time.Time, cal calendar.Calendar) (time.Time, error) {
	if row.Date != nil {
		return *row.Date, nil
	}
	return resolveTenorDate(row.Tenor, spot, cal)
}

// resolveRowDF resolves the pillar discount factor. An explicit discount
// factor column wins; otherwise the rate column is auto-scaled and converted
// continuously over the curve time axis.
func resolveRowDF(row Row, valuationDate, date time.Time) (float64, error) {
	if row.DF != nil {
		if math.IsNaN(*row.DF) || math.IsInf(*row.DF, 0) {
			return 0, fmt.Errorf("discount factor is not finite")
		}
		return clampDF(*row.DF), nil
	}
	if row.Rate == nil {
		return 0, fmt.Errorf("no rate or discount factor")
	}
	r := *row.Rate
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("rate is not finite")
	}
	r = ScaleRate(r)
	t := utils.YearFraction(valuationDate, date, utils.CurveDayCount)
	return clampDF(math.Exp(-r * t)), nil
}

// ScaleRate normalizes an ambiguously quoted rate to a decimal. Magnitudes
// above 2 are treated as percent; values still above 20 after the percent
// step are treated as basis points of the raw value.
func ScaleRate(v float64) float64 {
	if math.Abs(v) <= 2 {
		return v
	}
	scaled := v / 100
	if math.Abs(scaled) > 20 {
		return v * 1e-4
	}
	return scaled
}

func clampDF(df float64) float64 {
	if df < minDF {
		return minDF
	}
	if df > 1 {
		return 1
	}
	return df
}
