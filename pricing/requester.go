// Package pricing sits between interactive pricing consumers and the rate
// deriver: it owns the retry policy for degenerate derivations, converts
// typed failures into structured error events, and coalesces bursts of
// market-change notifications into bounded reprice passes.
package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meenmo/fxcurve/derive"
	"github.com/meenmo/fxcurve/store"
)

// ErrorEvent is the structured form a derivation failure takes at the
// pricing boundary.
type ErrorEvent struct {
	Source        string    `json:"source"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewErrorEvent wraps err for the given source with a fresh correlation id.
func NewErrorEvent(source string, err error) ErrorEvent {
	return ErrorEvent{
		Source:        source,
		Message:       err.Error(),
		CorrelationID: uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
	}
}

// Requester drives the deriver on behalf of a price request and enforces
// the retry policy the deriver itself does not implement: a non-forced
// derivation that reads back as exactly 0/0 gets exactly one forced retry
// before the request fails.
type Requester struct {
	deriver *derive.Deriver
	store   *store.Store
	log     *logrus.Logger
}

func NewRequester(d *derive.Deriver, st *store.Store, log *logrus.Logger) *Requester {
	if log == nil {
		log = logrus.New()
	}
	return &Requester{deriver: d, store: st, log: log}
}

// EnsureRates derives rd/rf for (pair, leg) over the given window and
// verifies the store holds a usable result. A typed error from the deriver
// or a persistent 0/0 read-back is returned to the caller; use Report to
// turn it into an event.
func (r *Requester) EnsureRates(ctx context.Context, pair, leg string, today, spotDate, settlement time.Time) error {
	if err := r.deriver.EnsureRdRf(ctx, pair, leg, today, spotDate, settlement, false); err != nil {
		return err
	}
	if !r.degenerate(pair, leg) {
		return nil
	}

	r.log.WithFields(logrus.Fields{"pair": pair, "leg": leg}).
		Warn("rd/rf read back as 0/0, forcing one refresh")
	if err := r.deriver.EnsureRdRf(ctx, pair, leg, today, spotDate, settlement, true); err != nil {
		return err
	}
	if r.degenerate(pair, leg) {
		return &derive.DerivationError{Pair: pair, Leg: leg}
	}
	return nil
}

func (r *Requester) degenerate(pair, leg string) bool {
	rec, ok := r.store.Current(pair, leg)
	if !ok {
		return true
	}
	return rec.Rd.Mid() == 0 && rec.Rf.Mid() == 0
}

// Report logs err as a structured event and returns it for the transport
// boundary to surface.
func (r *Requester) Report(source string, err error) ErrorEvent {
	ev := NewErrorEvent(source, err)
	r.log.WithFields(logrus.Fields{
		"source":         ev.Source,
		"correlation_id": ev.CorrelationID,
	}).Error(ev.Message)
	return ev
}
