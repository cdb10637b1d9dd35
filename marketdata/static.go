package marketdata

import (
	"context"
	"fmt"

	"github.com/meenmo/fxcurve/curve"
)

// Static is a map-backed source for development and testing.
type Static struct {
	tenors map[string][]curve.Row
	legs   map[string]*FxLegQuote
}

// NewStatic returns an empty static source.
func NewStatic() *Static {
	return &Static{
		tenors: make(map[string][]curve.Row),
		legs:   make(map[string]*FxLegQuote),
	}
}

// SetTenorRows registers the tenor table for a curve ticker.
func (s *Static) SetTenorRows(ticker string, rows []curve.Row) {
	s.tenors[ticker] = rows
}

// SetFxLeg registers an FX leg quote under its ticker.
func (s *Static) SetFxLeg(leg *FxLegQuote) {
	s.legs[leg.Ticker] = leg
}

func (s *Static) TenorRows(_ context.Context, ticker string) ([]curve.Row, error) {
	rows, ok := s.tenors[ticker]
	if !ok {
		return nil, fmt.Errorf("TenorRows: %q: %w", ticker, ErrNotFound)
	}
	return rows, nil
}

func (s *Static) FxLeg(_ context.Context, ticker string) (*FxLegQuote, error) {
	leg, ok := s.legs[ticker]
	if !ok {
		return nil, fmt.Errorf("FxLeg: %q: %w", ticker, ErrNotFound)
	}
	return leg, nil
}
