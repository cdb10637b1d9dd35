// Package marketdata defines the boundary to the external market-data
// source: bulk tenor tables for curve construction and spot/forward-points
// quotes for FX legs.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/fxcurve/curve"
	"github.com/meenmo/fxcurve/fx"
	"github.com/meenmo/fxcurve/utils"
)

// ErrNotFound is returned when a ticker is unknown to the source.
var ErrNotFound = errors.New("marketdata: ticker not found")

// Source supplies raw market data by ticker. Fetch failure is signaled as an
// error; there is no partial or degraded response contract.
type Source interface {
	// TenorRows returns the bulk tenor table for a money-market curve ticker.
	TenorRows(ctx context.Context, ticker string) ([]curve.Row, error)
	// FxLeg returns the spot/forward-points quote for an FX leg ticker.
	FxLeg(ctx context.Context, ticker string) (*FxLegQuote, error)
}

// ForwardPoint is one outright forward level at a settlement date.
type ForwardPoint struct {
	Date     time.Time `json:"date"`
	Outright float64   `json:"outright"`
}

// FxLegQuote is a single FX forward-points curve loaded for one ticker.
type FxLegQuote struct {
	Ticker  string         `json:"ticker"`
	Pair    fx.Pair        `json:"pair"`
	SpotMid float64        `json:"spot_mid"`
	Points  []ForwardPoint `json:"points"`
}

// NewFxLegQuote returns a leg quote with its points sorted by date.
func NewFxLegQuote(ticker string, pair fx.Pair, spotMid float64, points []ForwardPoint) *FxLegQuote {
	sorted := make([]ForwardPoint, len(points))
	copy(sorted, points)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Date.Before(sorted[j-1].Date); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return &FxLegQuote{Ticker: ticker, Pair: pair, SpotMid: spotMid, Points: sorted}
}

// Forward returns the outright forward at settlement, linearly interpolated
// in time between the bracketing points and held flat outside the range.
func (q *FxLegQuote) Forward(settlement time.Time) (float64, error) {
	switch len(q.Points) {
	case 0:
		return 0, fmt.Errorf("Forward: %s: no forward points", q.Ticker)
	case 1:
		return q.Points[0].Outright, nil
	}

	first, last := q.Points[0], q.Points[len(q.Points)-1]
	if !settlement.After(first.Date) {
		return first.Outright, nil
	}
	if !settlement.Before(last.Date) {
		return last.Outright, nil
	}

	dates := make([]time.Time, len(q.Points))
	byDate := make(map[time.Time]float64, len(q.Points))
	for i, p := range q.Points {
		dates[i] = p.Date
		byDate[p.Date] = p.Outright
	}
	d1, d2 := utils.AdjacentDates(settlement, dates)
	if d1.Equal(d2) {
		return byDate[d1], nil
	}
	w := utils.Days(d1, settlement) / utils.Days(d1, d2)
	return byDate[d1] + w*(byDate[d2]-byDate[d1]), nil
}
