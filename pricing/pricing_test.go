package pricing_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meenmo/fxcurve/calendar"
	"github.com/meenmo/fxcurve/curve"
	"github.com/meenmo/fxcurve/derive"
	"github.com/meenmo/fxcurve/fx"
	"github.com/meenmo/fxcurve/logging"
	"github.com/meenmo/fxcurve/marketdata"
	"github.com/meenmo/fxcurve/pricing"
	"github.com/meenmo/fxcurve/store"
)

var (
	valuation  = time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC)
	spotDate   = time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)
	settlement = time.Date(2025, time.February, 7, 0, 0, 0, 0, time.UTC)
)

func fp(v float64) *float64 { return &v }

// healingSource serves a broken FX leg for the first n fetches and a good
// one afterwards, modelling a feed that recovers between a request and its
// forced retry.
type healingSource struct {
	*marketdata.Static
	badFetches int
	legCalls   int
}

func (h *healingSource) FxLeg(ctx context.Context, ticker string) (*marketdata.FxLegQuote, error) {
	h.legCalls++
	leg, err := h.Static.FxLeg(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if h.legCalls <= h.badFetches {
		pair, _ := fx.ParsePair(ticker)
		return marketdata.NewFxLegQuote(ticker, pair, leg.SpotMid, []marketdata.ForwardPoint{
			{Date: settlement, Outright: math.NaN()},
		}), nil
	}
	return leg, nil
}

// zero-rate curve: the anchor par rate is exactly zero, so a broken leg
// makes both rd and rf read back as 0/0.
func newRequesterFixture(t *testing.T, badFetches int) (*healingSource, *store.Store, *pricing.Requester) {
	t.Helper()
	static := marketdata.NewStatic()
	static.SetTenorRows("USD_MM", []curve.Row{
		{Tenor: "1M", Rate: fp(0.0)},
		{Tenor: "3M", Rate: fp(0.0)},
	})
	pair, _ := fx.ParsePair("USDSEK")
	static.SetFxLeg(marketdata.NewFxLegQuote("USDSEK", pair, 11.05, []marketdata.ForwardPoint{
		{Date: settlement, Outright: 11.01},
	}))

	src := &healingSource{Static: static, badFetches: badFetches}
	st := store.New()
	d := derive.New(src, st, derive.Options{
		CurveTicker: "USD_MM",
		Calendar:    calendar.Weekdays(),
		Logger:      logging.Discard(),
	})
	return src, st, pricing.NewRequester(d, st, logging.Discard())
}

func TestEnsureRates_RetryRecovers(t *testing.T) {
	t.Parallel()
	src, st, req := newRequesterFixture(t, 1)

	if err := req.EnsureRates(context.Background(), "USDSEK", "1M", valuation, spotDate, settlement); err != nil {
		t.Fatalf("EnsureRates: %v", err)
	}
	if src.legCalls != 2 {
		t.Fatalf("leg fetches: got %d, want 2 (initial + one forced retry)", src.legCalls)
	}

	rec, ok := st.Current("USDSEK", "1M")
	if !ok {
		t.Fatal("no record written")
	}
	if rec.Rd.Mid() == 0 {
		t.Fatal("rd should be non-zero after the retry healed the leg")
	}
}

func TestEnsureRates_PersistentZeroIsFatal(t *testing.T) {
	t.Parallel()
	src, _, req := newRequesterFixture(t, 10)

	err := req.EnsureRates(context.Background(), "USDSEK", "1M", valuation, spotDate, settlement)
	var derr *derive.DerivationError
	if !errors.As(err, &derr) {
		t.Fatalf("got %v, want DerivationError", err)
	}
	if src.legCalls != 2 {
		t.Fatalf("leg fetches: got %d, want exactly 2 (no retry loop)", src.legCalls)
	}
}

func TestEnsureRates_NoRetryWhenHealthy(t *testing.T) {
	t.Parallel()
	static := marketdata.NewStatic()
	static.SetTenorRows("USD_MM", []curve.Row{
		{Tenor: "1M", Rate: fp(5.30)},
		{Tenor: "3M", Rate: fp(5.30)},
	})
	pair, _ := fx.ParsePair("USDSEK")
	static.SetFxLeg(marketdata.NewFxLegQuote("USDSEK", pair, 11.05, []marketdata.ForwardPoint{
		{Date: settlement, Outright: 11.01},
	}))
	src := &healingSource{Static: static}
	st := store.New()
	d := derive.New(src, st, derive.Options{
		CurveTicker: "USD_MM",
		Calendar:    calendar.Weekdays(),
		Logger:      logging.Discard(),
	})
	req := pricing.NewRequester(d, st, logging.Discard())

	if err := req.EnsureRates(context.Background(), "USDSEK", "1M", valuation, spotDate, settlement); err != nil {
		t.Fatalf("EnsureRates: %v", err)
	}
	if src.legCalls != 1 {
		t.Fatalf("leg fetches: got %d, want 1", src.legCalls)
	}
}

func TestNewErrorEvent(t *testing.T) {
	t.Parallel()
	a := pricing.NewErrorEvent("deriver", errors.New("boom"))
	b := pricing.NewErrorEvent("deriver", errors.New("boom"))

	if a.Message != "boom" || a.Source != "deriver" {
		t.Fatalf("event fields: %+v", a)
	}
	if a.CorrelationID == "" || a.CorrelationID == b.CorrelationID {
		t.Fatal("correlation ids must be unique and non-empty")
	}
}

func TestCoalescer_OneInFlightOneQueued(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs int32
	c := pricing.NewCoalescer(func() {
		atomic.AddInt32(&runs, 1)
		started <- struct{}{}
		<-release
	})

	c.Trigger()
	<-started
	for i := 0; i < 5; i++ {
		c.Trigger()
	}
	release <- struct{}{}

	// The queued pass runs once, absorbing all five triggers.
	<-started
	release <- struct{}{}
	c.Wait()

	if got := atomic.LoadInt32(&runs); got != 2 {
		t.Fatalf("passes: got %d, want 2", got)
	}
}
