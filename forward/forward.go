// Package forward turns money-market rate pairs and a sided spot into
// discount factors and arbitrage-consistent forward/swap-point quotes.
package forward

import (
	"fmt"
	"math"

	"github.com/meenmo/fxcurve/quote"
)

// Compounding selects the rate-to-discount-factor convention. Positive
// values are discrete compounding periods per year.
type Compounding int

const (
	Simple     Compounding = 0
	Continuous Compounding = -1
	Annual     Compounding = 1
	SemiAnnual Compounding = 2
	Quarterly  Compounding = 4
	Monthly    Compounding = 12
)

// DiscountFactor converts rate r over year fraction t to a discount factor.
// t = 0 always yields 1.
func DiscountFactor(r, t float64, comp Compounding) float64 {
	if t == 0 {
		return 1
	}
	switch {
	case comp == Continuous:
		return math.Exp(-r * t)
	case comp > 0:
		g := float64(comp)
		return math.Pow(1+r/g, -g*t)
	default:
		return 1 / (1 + r*t)
	}
}

// Sided carries bid/ask plus an independently computed mid. The mid is
// derived from mid inputs, not averaged from the sides.
type Sided struct {
	Bid float64
	Ask float64
	Mid float64
}

// Result is the output of a forward build.
type Result struct {
	DomesticDF Sided
	ForeignDF  Sided
	Forward    Sided
	Swap       Sided
}

// Build computes sided discount factors, forwards and swap points from a
// sided spot and sided rd/rf over a single year fraction.
//
// Forward sides cross the domestic discount factor: the bid forward uses the
// ask domestic DF and vice versa, so the forward cannot cross whenever the
// inputs are non-crossed.
func Build(spot, rd, rf quote.TwoWay, yearFraction float64, rdComp, rfComp Compounding) (Result, error) {
	if yearFraction < 0 {
		return Result{}, fmt.Errorf("Build: negative year fraction %v", yearFraction)
	}
	if err := validateInputs(spot, rd, rf); err != nil {
		return Result{}, fmt.Errorf("Build: %w", err)
	}

	dfd := sidedDF(rd, yearFraction, rdComp)
	dff := sidedDF(rf, yearFraction, rfComp)

	return assemble(spot, dfd, dff), nil
}

// sidedDF converts a sided rate to a sided discount factor. A discount
// factor quote crosses the rate sides: the higher (ask) rate discounts more
// and therefore produces the lower (bid) DF.
func sidedDF(r quote.TwoWay, t float64, comp Compounding) Sided {
	return Sided{
		Bid: DiscountFactor(r.AskSide(), t, comp),
		Ask: DiscountFactor(r.BidSide(), t, comp),
		Mid: DiscountFactor(r.Mid(), t, comp),
	}
}

func validateInputs(spot, rd, rf quote.TwoWay) error {
	if err := spot.Validate(); err != nil {
		return fmt.Errorf("spot: %w", err)
	}
	if err := rd.Validate(); err != nil {
		return fmt.Errorf("rd: %w", err)
	}
	if err := rf.Validate(); err != nil {
		return fmt.Errorf("rf: %w", err)
	}
	return nil
}

// assemble builds forward and swap sides from sided discount factors.
func assemble(spot quote.TwoWay, dfd, dff Sided) Result {
	sBid, sAsk, sMid := spot.BidSide(), spot.AskSide(), spot.Mid()

	fwd := Sided{
		Bid: sBid * dff.Bid / dfd.Ask,
		Ask: sAsk * dff.Ask / dfd.Bid,
		Mid: sMid * dff.Mid / dfd.Mid,
	}
	swap := Sided{
		Bid: fwd.Bid - sBid,
		Ask: fwd.Ask - sAsk,
		Mid: fwd.Mid - sMid,
	}
	return Result{DomesticDF: dfd, ForeignDF: dff, Forward: fwd, Swap: swap}
}
