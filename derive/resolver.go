package derive

import (
	"context"
	"errors"

	"github.com/meenmo/fxcurve/marketdata"
	"github.com/meenmo/fxcurve/metrics"
	"github.com/meenmo/fxcurve/ratecache"
)

// Outcome tags which ticker direction served an FX leg resolution.
type Outcome int

const (
	PreferredUsed Outcome = iota
	AlternateUsed
	ResolveFailed
)

// legResolution is the result of a cached two-candidate leg lookup.
type legResolution struct {
	entry   ratecache.Entry[*marketdata.FxLegQuote]
	leg     *marketdata.FxLegQuote
	outcome Outcome
}

// resolveLeg loads the FX leg between ccy1 and ccy2 through the leg cache,
// trying the preferred ticker direction (ccy1+ccy2) first and falling back
// to the alternate direction on fetch failure. Both directions failing
// produces a TransportError carrying both causes.
func (d *Deriver) resolveLeg(ctx context.Context, ccy1, ccy2 string, force bool) (legResolution, error) {
	candidates := [2]string{ccy1 + ccy2, ccy2 + ccy1}
	outcomes := [2]Outcome{PreferredUsed, AlternateUsed}

	// Either direction may already be cached; consult both before
	// spending an external fetch on a ticker that failed last time.
	if !force {
		for i, ticker := range candidates {
			if e, ok := d.legs.Lookup(ticker); ok && !d.legs.Expired(e) {
				return legResolution{entry: e, leg: e.Value, outcome: outcomes[i]}, nil
			}
		}
	}

	var errs [2]error
	for i, ticker := range candidates {
		leg, err := d.src.FxLeg(ctx, ticker)
		metrics.SourceFetchesTotal.WithLabelValues("fx_leg").Inc()
		if err != nil {
			errs[i] = err
			continue
		}

		if outcomes[i] == AlternateUsed {
			metrics.TickerFallbacksTotal.Inc()
			d.log.WithField("ticker", ticker).Info("fx leg served by alternate ticker direction")
		}
		return legResolution{entry: d.legs.Put(ticker, leg), leg: leg, outcome: outcomes[i]}, nil
	}

	return legResolution{outcome: ResolveFailed},
		&TransportError{Ticker: candidates[0], Err: errors.Join(errs[0], errs[1])}
}
