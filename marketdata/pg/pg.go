// Package pg is the PostgreSQL-backed market-data source.
//
// Two flat tables back the feed: tenor_quotes holds money-market tenor rows
// per curve ticker, fx_legs/fx_forward_points hold spot mids and outright
// forward points per FX leg ticker.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/meenmo/fxcurve/curve"
	"github.com/meenmo/fxcurve/fx"
	"github.com/meenmo/fxcurve/marketdata"
)

// Source reads market data from PostgreSQL. The connection pool is opened
// lazily by database/sql: constructing a Source does not touch the network,
// so cache-hit paths never depend on connection establishment.
type Source struct {
	db  *sql.DB
	log *logrus.Logger
}

// Open prepares a source for the given DSN without dialing.
func Open(dsn string, log *logrus.Logger) (*Source, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Source{db: db, log: log}, nil
}

// Ping verifies connectivity. Callers that want an eager health check run
// this once at startup; the deriver itself never does.
func (s *Source) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pg.Ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) TenorRows(ctx context.Context, ticker string) ([]curve.Row, error) {
	const q = `
		SELECT tenor, quote_date, rate, discount_factor
		FROM tenor_quotes
		WHERE ticker = $1
		ORDER BY position`

	rows, err := s.db.QueryContext(ctx, q, ticker)
	if err != nil {
		return nil, fmt.Errorf("TenorRows: %q: %w", ticker, err)
	}
	defer rows.Close()

	var out []curve.Row
	for rows.Next() {
		var (
			tenor string
			date  sql.NullTime
			rate  sql.NullFloat64
			df    sql.NullFloat64
		)
		if err := rows.Scan(&tenor, &date, &rate, &df); err != nil {
			return nil, fmt.Errorf("TenorRows: %q: %w", ticker, err)
		}
		row := curve.Row{Tenor: tenor}
		if date.Valid {
			d := date.Time.UTC()
			row.Date = &d
		}
		if rate.Valid {
			v := rate.Float64
			row.Rate = &v
		}
		if df.Valid {
			v := df.Float64
			row.DF = &v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TenorRows: %q: %w", ticker, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("TenorRows: %q: %w", ticker, marketdata.ErrNotFound)
	}
	s.log.WithFields(logrus.Fields{"ticker": ticker, "rows": len(out)}).Debug("fetched tenor table")
	return out, nil
}

func (s *Source) FxLeg(ctx context.Context, ticker string) (*marketdata.FxLegQuote, error) {
	const legQ = `
		SELECT pair, spot_mid
		FROM fx_legs
		WHERE ticker = $1`

	var (
		pairCode string
		spotMid  float64
	)
	err := s.db.QueryRowContext(ctx, legQ, ticker).Scan(&pairCode, &spotMid)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("FxLeg: %q: %w", ticker, marketdata.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("FxLeg: %q: %w", ticker, err)
	}
	pair, err := fx.ParsePair(pairCode)
	if err != nil {
		return nil, fmt.Errorf("FxLeg: %q: %w", ticker, err)
	}

	const pointsQ = `
		SELECT settlement_date, outright
		FROM fx_forward_points
		WHERE ticker = $1
		ORDER BY settlement_date`

	rows, err := s.db.QueryContext(ctx, pointsQ, ticker)
	if err != nil {
		return nil, fmt.Errorf("FxLeg: %q: %w", ticker, err)
	}
	defer rows.Close()

	var points []marketdata.ForwardPoint
	for rows.Next() {
		var p marketdata.ForwardPoint
		if err := rows.Scan(&p.Date, &p.Outright); err != nil {
			return nil, fmt.Errorf("FxLeg: %q: %w", ticker, err)
		}
		p.Date = p.Date.UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FxLeg: %q: %w", ticker, err)
	}

	s.log.WithFields(logrus.Fields{"ticker": ticker, "points": len(points)}).Debug("fetched fx leg")
	return marketdata.NewFxLegQuote(ticker, pair, spotMid, points), nil
}
