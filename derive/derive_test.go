package derive_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/fxcurve/calendar"
	"github.com/meenmo/fxcurve/curve"
	"github.com/meenmo/fxcurve/derive"
	"github.com/meenmo/fxcurve/fx"
	"github.com/meenmo/fxcurve/logging"
	"github.com/meenmo/fxcurve/marketdata"
	"github.com/meenmo/fxcurve/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

// autoClock jumps forward on every reading, so any cache entry has aged
// past its TTL by the time it is checked again.
type autoClock struct {
	t    time.Time
	step time.Duration
}

func (a *autoClock) Now() time.Time {
	a.t = a.t.Add(a.step)
	return a.t
}

// countingSource wraps Static and counts upstream fetches so tests can
// assert on cache behavior.
type countingSource struct {
	*marketdata.Static
	curveFetches int
	legFetches   int
}

func (c *countingSource) TenorRows(ctx context.Context, ticker string) ([]curve.Row, error) {
	c.curveFetches++
	return c.Static.TenorRows(ctx, ticker)
}

func (c *countingSource) FxLeg(ctx context.Context, ticker string) (*marketdata.FxLegQuote, error) {
	c.legFetches++
	return c.Static.FxLeg(ctx, ticker)
}

func fp(v float64) *float64 { return &v }

func flatRows(rate float64, tenors ...string) []curve.Row {
	rows := make([]curve.Row, 0, len(tenors))
	for _, tenor := range tenors {
		rows = append(rows, curve.Row{Tenor: tenor, Rate: fp(rate)})
	}
	return rows
}

const (
	curveTicker = "USD_MM"
	flatPercent = 5.30
)

var (
	valuation  = date(2025, time.January, 3) // Friday
	spotDate   = date(2025, time.January, 7) // +2 business days
	settlement = date(2025, time.February, 7)
)

func newFixture(t *testing.T) (*countingSource, *store.Store, *fakeClock, *derive.Deriver) {
	t.Helper()
	static := marketdata.NewStatic()
	static.SetTenorRows(curveTicker, flatRows(flatPercent, "1W", "1M", "3M", "6M"))
	src := &countingSource{Static: static}
	st := store.New()
	clk := &fakeClock{t: valuation.Add(9 * time.Hour)}
	d := derive.New(src, st, derive.Options{
		CurveTicker: curveTicker,
		Calendar:    calendar.Weekdays(),
		Clock:       clk.Now,
		Logger:      logging.Discard(),
	})
	return src, st, clk, d
}

func setLeg(src *countingSource, ticker string, spotMid, outright float64) {
	pair, err := fx.ParsePair(ticker)
	if err != nil {
		panic(err)
	}
	src.Static.SetFxLeg(marketdata.NewFxLegQuote(ticker, pair, spotMid, []marketdata.ForwardPoint{
		{Date: settlement, Outright: outright},
	}))
}

// anchorPar reproduces the simple par rate implied by the flat test curve
// over [spotDate, settlement]: continuous 5.30% on ACT/365F, re-quoted on
// the USD ACT/360 money-market basis.
func anchorPar() float64 {
	days := settlement.Sub(spotDate).Hours() / 24
	return (math.Exp(flatPercent/100*days/365) - 1) / (days / 360)
}

func TestEnsureRdRf_CachedWithinTTL(t *testing.T) {
	t.Parallel()
	src, _, _, d := newFixture(t)
	setLeg(src, "USDSEK", 11.05, 11.01)

	ctx := context.Background()
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("first EnsureRdRf: %v", err)
	}
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("second EnsureRdRf: %v", err)
	}

	if src.curveFetches != 1 {
		t.Fatalf("curve fetches: got %d, want 1", src.curveFetches)
	}
	if src.legFetches != 1 {
		t.Fatalf("leg fetches: got %d, want 1", src.legFetches)
	}
}

func TestEnsureRdRf_ForceAlwaysFetches(t *testing.T) {
	t.Parallel()
	src, _, _, d := newFixture(t)
	setLeg(src, "USDSEK", 11.05, 11.01)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, true); err != nil {
			t.Fatalf("forced EnsureRdRf #%d: %v", i+1, err)
		}
	}

	if src.curveFetches != 2 {
		t.Fatalf("curve fetches: got %d, want 2", src.curveFetches)
	}
	if src.legFetches != 2 {
		t.Fatalf("leg fetches: got %d, want 2", src.legFetches)
	}
}

func TestEnsureRdRf_TTLExpiryRefetches(t *testing.T) {
	t.Parallel()
	src, _, clk, d := newFixture(t)
	setLeg(src, "USDSEK", 11.05, 11.01)

	ctx := context.Background()
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf: %v", err)
	}

	// Past the 3-minute leg TTL but within the 15-minute curve TTL.
	clk.Advance(4 * time.Minute)
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf after leg expiry: %v", err)
	}
	if src.curveFetches != 1 || src.legFetches != 2 {
		t.Fatalf("after leg expiry: curve=%d leg=%d, want 1/2", src.curveFetches, src.legFetches)
	}

	clk.Advance(20 * time.Minute)
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf after curve expiry: %v", err)
	}
	if src.curveFetches != 2 {
		t.Fatalf("curve fetches after expiry: got %d, want 2", src.curveFetches)
	}
}

func TestEnsureRdRf_AnchorBase(t *testing.T) {
	t.Parallel()
	src, st, _, d := newFixture(t)
	setLeg(src, "USDSEK", 11.05, 11.01)

	if err := d.EnsureRdRf(context.Background(), "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf: %v", err)
	}

	rec, ok := st.Current("USDSEK", "1M")
	if !ok {
		t.Fatal("no record written")
	}
	par := anchorPar()
	if got := rec.Rf.Mid(); math.Abs(got-par) > 1e-12 {
		t.Fatalf("rf: got %v, want anchor par rate %v", got, par)
	}

	// rd back-solved from the USD-SEK leg; SEK quotes on the default
	// 360-day basis.
	days := settlement.Sub(spotDate).Hours() / 24
	growth := 1 + par*days/360
	wantRd := (growth*11.01/11.05 - 1) / (days / 360)
	if got := rec.Rd.Mid(); math.Abs(got-wantRd) > 1e-12 {
		t.Fatalf("rd: got %v, want %v", got, wantRd)
	}
	if rec.RdStale || rec.RfStale {
		t.Fatal("fresh caches should not mark the record stale")
	}
}

func TestEnsureRdRf_AnchorQuoteScenario(t *testing.T) {
	t.Parallel()
	src, st, _, d := newFixture(t)
	setLeg(src, "EURUSD", 1.0500, 1.0475)

	if err := d.EnsureRdRf(context.Background(), "EURUSD", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf: %v", err)
	}

	rec, ok := st.Current("EURUSD", "1M")
	if !ok {
		t.Fatal("no record written")
	}

	// USD is the quote currency, so rd is the anchor par rate itself.
	par := anchorPar()
	if got := rec.Rd.Mid(); math.Abs(got-par) > 1e-4 {
		t.Fatalf("rd: got %v, want %v within 1bp", got, par)
	}

	// rf back-solved from the EUR-USD leg (EUR quotes against the anchor).
	days := settlement.Sub(spotDate).Hours() / 24
	growth := 1 + par*days/360
	wantRf := (growth*1.0500/1.0475 - 1) / (days / 360)
	if got := rec.Rf.Mid(); math.Abs(got-wantRf) > 1e-12 {
		t.Fatalf("rf: got %v, want %v", got, wantRf)
	}
}

func TestEnsureRdRf_CrossPair(t *testing.T) {
	t.Parallel()
	src, st, _, d := newFixture(t)
	setLeg(src, "EURUSD", 1.0500, 1.0475)
	setLeg(src, "USDSEK", 11.05, 11.01)

	if err := d.EnsureRdRf(context.Background(), "EURSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf: %v", err)
	}

	rec, ok := st.Current("EURSEK", "1M")
	if !ok {
		t.Fatal("no record written")
	}

	par := anchorPar()
	days := settlement.Sub(spotDate).Hours() / 24
	growth := 1 + par*days/360
	wantRf := (growth*1.0500/1.0475 - 1) / (days / 360)
	wantRd := (growth*11.01/11.05 - 1) / (days / 360)
	if got := rec.Rf.Mid(); math.Abs(got-wantRf) > 1e-12 {
		t.Fatalf("rf: got %v, want %v", got, wantRf)
	}
	if got := rec.Rd.Mid(); math.Abs(got-wantRd) > 1e-12 {
		t.Fatalf("rd: got %v, want %v", got, wantRd)
	}
}

func TestEnsureRdRf_AlternateTickerFallback(t *testing.T) {
	t.Parallel()
	src, st, _, d := newFixture(t)
	// Only the reversed direction is published.
	setLeg(src, "SEKUSD", 0.0905, 0.0908)

	if err := d.EnsureRdRf(context.Background(), "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf: %v", err)
	}

	rec, ok := st.Current("USDSEK", "1M")
	if !ok {
		t.Fatal("no record written")
	}

	// The fetched leg quotes SEK against the anchor, so the reciprocal
	// inversion applies.
	par := anchorPar()
	days := settlement.Sub(spotDate).Hours() / 24
	growth := 1 + par*days/360
	wantRd := (growth*0.0905/0.0908 - 1) / (days / 360)
	if got := rec.Rd.Mid(); math.Abs(got-wantRd) > 1e-12 {
		t.Fatalf("rd via alternate ticker: got %v, want %v", got, wantRd)
	}
}

func TestEnsureRdRf_AlternateTickerCachedWithinTTL(t *testing.T) {
	t.Parallel()
	src, _, _, d := newFixture(t)
	setLeg(src, "SEKUSD", 0.0905, 0.0908)

	ctx := context.Background()
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("first EnsureRdRf: %v", err)
	}
	// First pass: one failed fetch for the preferred direction plus the
	// alternate that succeeded.
	if src.legFetches != 2 {
		t.Fatalf("leg fetches after first call: got %d, want 2", src.legFetches)
	}

	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("second EnsureRdRf: %v", err)
	}
	// The cached alternate leg must serve the second call outright; the
	// dead preferred ticker is not retried within the TTL.
	if src.legFetches != 2 {
		t.Fatalf("leg fetches after second call: got %d, want 2", src.legFetches)
	}
}

func TestEnsureRdRf_NaNLegClampsToZero(t *testing.T) {
	t.Parallel()
	src, st, _, d := newFixture(t)
	setLeg(src, "USDSEK", 11.05, math.NaN())

	if err := d.EnsureRdRf(context.Background(), "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf: %v", err)
	}

	rec, ok := st.Current("USDSEK", "1M")
	if !ok {
		t.Fatal("no record written")
	}
	if got := rec.Rd.Mid(); got != 0.0 {
		t.Fatalf("rd from NaN forward: got %v, want 0.0", got)
	}
	if rec.RdStale {
		t.Fatal("clamp must not affect staleness: fresh caches mean not stale")
	}
	// The anchor leg stays intact.
	if got := rec.Rf.Mid(); math.Abs(got-anchorPar()) > 1e-12 {
		t.Fatalf("rf: got %v, want anchor par rate", got)
	}
}

func TestEnsureRdRf_StaleFlagFromCacheAge(t *testing.T) {
	t.Parallel()
	src, st, clk, d := newFixture(t)
	setLeg(src, "USDSEK", 11.05, 11.01)

	ctx := context.Background()
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf: %v", err)
	}

	rec, _ := st.Current("USDSEK", "1M")
	if rec.RdStale || rec.RfStale {
		t.Fatal("record should start fresh")
	}

	clk.Advance(2 * time.Minute)
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf within TTL: %v", err)
	}
	if src.legFetches != 1 {
		t.Fatalf("leg fetches: got %d, want 1", src.legFetches)
	}
}

func TestEnsureRdRf_StaleWhenEntriesAgePastTTL(t *testing.T) {
	t.Parallel()
	static := marketdata.NewStatic()
	static.SetTenorRows(curveTicker, flatRows(flatPercent, "1W", "1M", "3M", "6M"))
	src := &countingSource{Static: static}
	setLeg(src, "USDSEK", 11.05, 11.01)

	// Between the cache fill and the staleness check the clock has moved
	// past both TTLs, so the written record must carry the stale flag even
	// though the derivation itself succeeded with fresh fetches.
	clk := &autoClock{t: valuation.Add(9 * time.Hour), step: 16 * time.Minute}
	st := store.New()
	d := derive.New(src, st, derive.Options{
		CurveTicker: curveTicker,
		Calendar:    calendar.Weekdays(),
		Clock:       clk.Now,
		Logger:      logging.Discard(),
	})

	if err := d.EnsureRdRf(context.Background(), "USDSEK", "1M", valuation, spotDate, settlement, false); err != nil {
		t.Fatalf("EnsureRdRf: %v", err)
	}

	rec, ok := st.Current("USDSEK", "1M")
	if !ok {
		t.Fatal("no record written")
	}
	if !rec.RdStale || !rec.RfStale {
		t.Fatalf("stale flags: rd=%v rf=%v, want both true", rec.RdStale, rec.RfStale)
	}
	// Staleness must not distort the numbers themselves.
	par := anchorPar()
	if got := rec.Rf.Mid(); math.Abs(got-par) > 1e-12 {
		t.Fatalf("rf: got %v, want anchor par rate %v", got, par)
	}
}

func TestEnsureRdRf_ValidationErrors(t *testing.T) {
	t.Parallel()
	_, _, _, d := newFixture(t)
	ctx := context.Background()

	var verr *derive.ValidationError
	if err := d.EnsureRdRf(ctx, "usdsek", "1M", valuation, spotDate, settlement, false); !errors.As(err, &verr) {
		t.Fatalf("lowercase pair: got %v, want ValidationError", err)
	}
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, spotDate, spotDate, false); !errors.As(err, &verr) {
		t.Fatalf("settlement == spot: got %v, want ValidationError", err)
	}
	if err := d.EnsureRdRf(ctx, "USDSEK", "1M", valuation, valuation.AddDate(0, 0, -1), settlement, false); !errors.As(err, &verr) {
		t.Fatalf("spot before valuation: got %v, want ValidationError", err)
	}
}

func TestEnsureRdRf_TransportErrorWhenBothTickersFail(t *testing.T) {
	t.Parallel()
	_, _, _, d := newFixture(t)

	var terr *derive.TransportError
	err := d.EnsureRdRf(context.Background(), "USDSEK", "1M", valuation, spotDate, settlement, false)
	if !errors.As(err, &terr) {
		t.Fatalf("missing leg: got %v, want TransportError", err)
	}
	if !errors.Is(err, marketdata.ErrNotFound) {
		t.Fatalf("TransportError should wrap the source error, got %v", err)
	}
}
