package derive

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meenmo/fxcurve/calendar"
	"github.com/meenmo/fxcurve/curve"
	"github.com/meenmo/fxcurve/fx"
	"github.com/meenmo/fxcurve/marketdata"
	"github.com/meenmo/fxcurve/metrics"
	"github.com/meenmo/fxcurve/quote"
	"github.com/meenmo/fxcurve/ratecache"
	"github.com/meenmo/fxcurve/store"
	"github.com/meenmo/fxcurve/utils"
)

const (
	// Rates falling outside this band after derivation are clamped to it.
	rateFloor = -0.99
	rateCeil  = 10.0

	defaultCurveTTL = 15 * time.Minute
	defaultLegTTL   = 3 * time.Minute
)

// Deriver answers "what are rd and rf for this pair and settlement window"
// by bootstrapping the anchor-currency curve, reading FX forward legs
// against the anchor, and back-solving the counter-currency money-market
// rates. Results are written into the market-data store; the deriver keeps
// no state of its own beyond the two TTL caches.
type Deriver struct {
	anchor      string
	curveTicker string

	src   marketdata.Source
	store *store.Store
	cal   calendar.Calendar
	now   ratecache.Clock
	log   *logrus.Logger

	curves *ratecache.Cache[*curve.Curve]
	legs   *ratecache.Cache[*marketdata.FxLegQuote]
}

// Options configures a Deriver. Zero-value TTLs fall back to the
// process defaults (15 minutes for the anchor curve, 3 minutes per leg).
type Options struct {
	Anchor      string
	CurveTicker string
	CurveTTL    time.Duration
	LegTTL      time.Duration
	Calendar    calendar.Calendar
	Clock       ratecache.Clock
	Logger      *logrus.Logger
}

func New(src marketdata.Source, st *store.Store, opts Options) *Deriver {
	if opts.Anchor == "" {
		opts.Anchor = "USD"
	}
	if opts.CurveTTL <= 0 {
		opts.CurveTTL = defaultCurveTTL
	}
	if opts.LegTTL <= 0 {
		opts.LegTTL = defaultLegTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Deriver{
		anchor:      opts.Anchor,
		curveTicker: opts.CurveTicker,
		src:         src,
		store:       st,
		cal:         opts.Calendar,
		now:         opts.Clock,
		log:         opts.Logger,
		curves:      ratecache.New[*curve.Curve]("anchor_curve", opts.CurveTTL, opts.Clock),
		legs:        ratecache.New[*marketdata.FxLegQuote]("fx_leg", opts.LegTTL, opts.Clock),
	}
}

// EnsureRdRf refreshes the anchor curve and the FX legs needed for pair,
// back-solves rd and rf over [spotDate, settlement], and writes the
// collapsed mid quotes into the store under (pair, leg). With force set,
// both the curve and the legs are re-fetched regardless of cache age.
func (d *Deriver) EnsureRdRf(ctx context.Context, pair6, legID string, today, spotDate, settlement time.Time, force bool) error {
	started := d.now()
	defer func() {
		metrics.DeriveDuration.Observe(d.now().Sub(started).Seconds())
	}()

	pair, err := fx.ParsePair(pair6)
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if spotDate.Before(today) {
		return &ValidationError{Reason: fmt.Sprintf("spot date %s precedes valuation date %s",
			spotDate.Format("2006-01-02"), today.Format("2006-01-02"))}
	}
	if !settlement.After(spotDate) {
		return &ValidationError{Reason: fmt.Sprintf("settlement %s not after spot date %s",
			settlement.Format("2006-01-02"), spotDate.Format("2006-01-02"))}
	}

	curveEntry, err := d.ensureAnchorCurve(ctx, today, force)
	if err != nil {
		return err
	}
	anchorRate, err := d.anchorParRate(curveEntry.Value, spotDate, settlement)
	if err != nil {
		return err
	}

	var rd, rf float64
	stale := d.curves.Expired(curveEntry)

	switch {
	case pair.Base == d.anchor:
		// rf belongs to the base currency, which is the anchor itself.
		rf = anchorRate
		res, err := d.resolveLeg(ctx, d.anchor, pair.Quote, force)
		if err != nil {
			return err
		}
		stale = stale || d.legs.Expired(res.entry)
		rd = d.solveCounterRate(res.leg, pair.Quote, anchorRate, spotDate, settlement)

	case pair.Quote == d.anchor:
		rd = anchorRate
		res, err := d.resolveLeg(ctx, pair.Base, d.anchor, force)
		if err != nil {
			return err
		}
		stale = stale || d.legs.Expired(res.entry)
		rf = d.solveCounterRate(res.leg, pair.Base, anchorRate, spotDate, settlement)

	default:
		baseRes, err := d.resolveLeg(ctx, pair.Base, d.anchor, force)
		if err != nil {
			return err
		}
		quoteRes, err := d.resolveLeg(ctx, d.anchor, pair.Quote, force)
		if err != nil {
			return err
		}
		stale = stale || d.legs.Expired(baseRes.entry) || d.legs.Expired(quoteRes.entry)
		rf = d.solveCounterRate(baseRes.leg, pair.Base, anchorRate, spotDate, settlement)
		rd = d.solveCounterRate(quoteRes.leg, pair.Quote, anchorRate, spotDate, settlement)
	}

	rd = d.sanitizeRate(rd, pair6, legID, "rd")
	rf = d.sanitizeRate(rf, pair6, legID, "rf")

	ts := d.now().UTC()
	d.store.SetRdFromFeed(pair6, legID, quote.FromMid(rd), ts, stale)
	d.store.SetRfFromFeed(pair6, legID, quote.FromMid(rf), ts, stale)
	return nil
}

// ensureAnchorCurve returns the cached anchor curve for today, rebuilding
// it when the cached valuation date differs, the entry aged past its TTL,
// or a forced refresh was requested.
func (d *Deriver) ensureAnchorCurve(ctx context.Context, today time.Time, force bool) (ratecache.Entry[*curve.Curve], error) {
	key := today.Format("2006-01-02")
	if !force {
		if e, ok := d.curves.Lookup(key); ok && !d.curves.Expired(e) {
			return e, nil
		}
	}

	rows, err := d.src.TenorRows(ctx, d.curveTicker)
	metrics.SourceFetchesTotal.WithLabelValues("curve").Inc()
	if err != nil {
		return ratecache.Entry[*curve.Curve]{}, &TransportError{Ticker: d.curveTicker, Err: err}
	}
	c, err := curve.Build(rows, today, d.cal)
	if err != nil {
		return ratecache.Entry[*curve.Curve]{}, fmt.Errorf("EnsureRdRf: %w", err)
	}
	return d.curves.Put(key, c), nil
}

// anchorParRate is the simple money-market par rate implied by the anchor
// curve over [spotDate, settlement], quoted on the anchor currency's basis.
func (d *Deriver) anchorParRate(c *curve.Curve, spotDate, settlement time.Time) (float64, error) {
	dfSpot, err := c.DF(spotDate)
	if err != nil {
		return 0, fmt.Errorf("anchorParRate: %w", err)
	}
	dfSettle, err := c.DF(settlement)
	if err != nil {
		return 0, fmt.Errorf("anchorParRate: %w", err)
	}
	t := utils.Days(spotDate, settlement) / fx.DayBasis(d.anchor)
	return (dfSpot/dfSettle - 1) / t, nil
}

// solveCounterRate inverts the covered-parity forward formula of an FX leg
// against the anchor, yielding the money-market rate of the non-anchor
// currency. Which form of the inversion applies depends on the side of the
// leg ticker the anchor currency occupies.
func (d *Deriver) solveCounterRate(leg *marketdata.FxLegQuote, ccy string, anchorRate float64, spotDate, settlement time.Time) float64 {
	fwd, err := leg.Forward(settlement)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"ticker":     leg.Ticker,
			"settlement": settlement.Format("2006-01-02"),
		}).WithError(err).Warn("forward interpolation failed")
		return math.NaN()
	}

	days := utils.Days(spotDate, settlement)
	tAnchor := days / fx.DayBasis(d.anchor)
	tOther := days / fx.DayBasis(ccy)
	growth := 1 + anchorRate*tAnchor

	if leg.Pair.Base == d.anchor {
		return (growth*fwd/leg.SpotMid - 1) / tOther
	}
	return (growth*leg.SpotMid/fwd - 1) / tOther
}

// sanitizeRate applies the deriver's clamp policy: NaN and infinities
// collapse to zero, finite values are bounded to [rateFloor, rateCeil].
// Clamps are silent to the caller but counted and logged.
func (d *Deriver) sanitizeRate(r float64, pair, legID, which string) float64 {
	reason := ""
	clamped := r
	switch {
	case math.IsNaN(r):
		reason, clamped = "nan", 0.0
	case math.IsInf(r, 0):
		reason, clamped = "inf", 0.0
	case r < rateFloor:
		reason, clamped = "low", rateFloor
	case r > rateCeil:
		reason, clamped = "high", rateCeil
	}
	if reason == "" {
		return r
	}
	metrics.ClampsTotal.WithLabelValues(reason).Inc()
	d.log.WithFields(logrus.Fields{
		"pair":   pair,
		"leg":    legID,
		"rate":   which,
		"value":  r,
		"reason": reason,
	}).Warn("derived rate clamped")
	return clamped
}
