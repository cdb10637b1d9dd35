// Package store holds the currently accepted sided values per (pair, leg).
// The deriver only writes into it; pricing consumers only read Effective
// values, which honor the view mode and any manual override.
package store

import (
	"sync"
	"time"

	"github.com/meenmo/fxcurve/quote"
)

// ViewMode controls how Effective collapses sided values.
type ViewMode int

const (
	// ViewTwoWay passes sided values through unchanged.
	ViewTwoWay ViewMode = iota
	// ViewMid collapses every sided value to its mid.
	ViewMid
)

// Key identifies one (pair, leg) slot.
type Key struct {
	Pair string
	Leg  string
}

// field is one stored sided value with feed/override provenance.
type field struct {
	feed        quote.TwoWay
	hasFeed     bool
	override    quote.TwoWay
	hasOverride bool
	updatedAt   time.Time
	stale       bool
}

// effective resolves the override flag: a manual override always wins over
// the feed value.
func (f field) effective() (quote.TwoWay, bool) {
	if f.hasOverride {
		return f.override, true
	}
	return f.feed, f.hasFeed
}

type row struct {
	spot field
	rd   field
	rf   field
}

// Record is a read-only view of one (pair, leg) slot with Effective values
// already resolved for the store's view mode.
type Record struct {
	Spot      quote.TwoWay
	Rd        quote.TwoWay
	Rf        quote.TwoWay
	RdStale   bool
	RfStale   bool
	UpdatedAt time.Time
}

// Store is the market-data store. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	mode ViewMode
	rows map[Key]*row
}

// New returns an empty store in two-way view mode.
func New() *Store {
	return &Store{rows: make(map[Key]*row)}
}

// SetViewMode switches the Effective resolution mode.
func (s *Store) SetViewMode(m ViewMode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *Store) rowFor(k Key) *row {
	r, ok := s.rows[k]
	if !ok {
		r = &row{}
		s.rows[k] = r
	}
	return r
}

// SetSpotFromFeed records a spot value delivered by the feed.
func (s *Store) SetSpotFromFeed(pair, leg string, v quote.TwoWay, ts time.Time, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &s.rowFor(Key{pair, leg}).spot
	f.feed, f.hasFeed, f.updatedAt, f.stale = v, true, ts, stale
}

// SetRdFromFeed records a domestic rate delivered by the deriver.
func (s *Store) SetRdFromFeed(pair, leg string, v quote.TwoWay, ts time.Time, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &s.rowFor(Key{pair, leg}).rd
	f.feed, f.hasFeed, f.updatedAt, f.stale = v, true, ts, stale
}

// SetRfFromFeed records a foreign rate delivered by the deriver.
func (s *Store) SetRfFromFeed(pair, leg string, v quote.TwoWay, ts time.Time, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &s.rowFor(Key{pair, leg}).rf
	f.feed, f.hasFeed, f.updatedAt, f.stale = v, true, ts, stale
}

// OverrideRd pins rd to a manual value until ClearRdOverride.
func (s *Store) OverrideRd(pair, leg string, v quote.TwoWay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &s.rowFor(Key{pair, leg}).rd
	f.override, f.hasOverride = v, true
}

// ClearRdOverride drops a manual rd override.
func (s *Store) ClearRdOverride(pair, leg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &s.rowFor(Key{pair, leg}).rd
	f.override, f.hasOverride = quote.TwoWay{}, false
}

// OverrideRf pins rf to a manual value until ClearRfOverride.
func (s *Store) OverrideRf(pair, leg string, v quote.TwoWay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &s.rowFor(Key{pair, leg}).rf
	f.override, f.hasOverride = v, true
}

// ClearRfOverride drops a manual rf override.
func (s *Store) ClearRfOverride(pair, leg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &s.rowFor(Key{pair, leg}).rf
	f.override, f.hasOverride = quote.TwoWay{}, false
}

// Current returns the Effective record for (pair, leg). The second result
// is false when nothing has been stored for the slot.
func (s *Store) Current(pair, leg string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[Key{pair, leg}]
	if !ok {
		return Record{}, false
	}

	rec := Record{
		RdStale: r.rd.stale,
		RfStale: r.rf.stale,
	}
	if spot, ok := r.spot.effective(); ok {
		rec.Spot = s.applyMode(spot)
	}
	if rd, ok := r.rd.effective(); ok {
		rec.Rd = s.applyMode(rd)
	}
	if rf, ok := r.rf.effective(); ok {
		rec.Rf = s.applyMode(rf)
	}
	rec.UpdatedAt = r.rd.updatedAt
	if r.rf.updatedAt.After(rec.UpdatedAt) {
		rec.UpdatedAt = r.rf.updatedAt
	}
	return rec, true
}

func (s *Store) applyMode(v quote.TwoWay) quote.TwoWay {
	if s.mode == ViewMid {
		return quote.FromMid(v.Mid())
	}
	return v
}
