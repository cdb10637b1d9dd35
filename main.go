package main

import (
	"context"
	"fmt"
	"time"

	"github.com/meenmo/fxcurve/calendar"
	"github.com/meenmo/fxcurve/curve"
	"github.com/meenmo/fxcurve/derive"
	"github.com/meenmo/fxcurve/forward"
	"github.com/meenmo/fxcurve/fx"
	"github.com/meenmo/fxcurve/logging"
	"github.com/meenmo/fxcurve/marketdata"
	"github.com/meenmo/fxcurve/quote"
	"github.com/meenmo/fxcurve/store"
	"github.com/meenmo/fxcurve/utils"
)

func rate(v float64) *float64 { return &v }

func main() {
	today := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	cal := calendar.Weekdays()
	spotDate := cal.AddBusinessDays(today, 2)
	settlement := time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC)

	src := marketdata.NewStatic()
	src.SetTenorRows("USD_MM", []curve.Row{
		{Tenor: "1W", Rate: rate(5.31)},
		{Tenor: "1M", Rate: rate(5.30)},
		{Tenor: "3M", Rate: rate(5.28)},
		{Tenor: "6M", Rate: rate(5.21)},
		{Tenor: "1Y", Rate: rate(5.02)},
	})
	eurusd, _ := fx.ParsePair("EURUSD")
	src.SetFxLeg(marketdata.NewFxLegQuote("EURUSD", eurusd, 1.0500, []marketdata.ForwardPoint{
		{Date: spotDate.AddDate(0, 1, 0), Outright: 1.0524},
		{Date: spotDate.AddDate(0, 3, 0), Outright: 1.0571},
	}))

	st := store.New()
	deriver := derive.New(src, st, derive.Options{
		CurveTicker: "USD_MM",
		Calendar:    cal,
		Logger:      logging.New("info", "text"),
	})

	if err := deriver.EnsureRdRf(context.Background(), "EURUSD", "1M", today, spotDate, settlement, false); err != nil {
		fmt.Printf("derive failed: %v\n", err)
		return
	}

	rec, _ := st.Current("EURUSD", "1M")
	fmt.Printf("EURUSD 1M rd: %.6f\n", rec.Rd.Mid())
	fmt.Printf("EURUSD 1M rf: %.6f\n", rec.Rf.Mid())
	fmt.Printf("stale: %v\n", rec.RdStale || rec.RfStale)

	spot := quote.New(1.0498, 1.0502)
	yf := utils.Days(spotDate, settlement) / 360
	fquote, err := forward.Build(spot, rec.Rd, rec.Rf, yf, forward.Simple, forward.Simple)
	if err != nil {
		fmt.Printf("forward build failed: %v\n", err)
		return
	}
	fmt.Printf("forward: %.6f / %.6f (mid %.6f)\n",
		fquote.Forward.Bid, fquote.Forward.Ask, fquote.Forward.Mid)
	fmt.Printf("swap points: %.6f\n", fquote.Swap.Mid)
}
