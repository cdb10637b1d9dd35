package quote

import "errors"

var (
	// ErrEmpty is returned when a two-way value carries neither side.
	ErrEmpty = errors.New("two-way: no sides present")
	// ErrCrossed is returned when bid exceeds ask.
	ErrCrossed = errors.New("two-way: bid above ask")
)

// TwoWay is a sided bid/ask value. A valid value carries at least one side;
// when both sides are present, bid must not exceed ask.
//
// The zero value is empty and fails Validate.
type TwoWay struct {
	bid, ask       float64
	hasBid, hasAsk bool
}

// New returns a two-way value with both sides set.
func New(bid, ask float64) TwoWay {
	return TwoWay{bid: bid, ask: ask, hasBid: true, hasAsk: true}
}

// FromMid returns a two-way value collapsed to a single level on both sides.
func FromMid(mid float64) TwoWay {
	return New(mid, mid)
}

// BidOnly returns a one-sided bid value.
func BidOnly(bid float64) TwoWay {
	return TwoWay{bid: bid, hasBid: true}
}

// AskOnly returns a one-sided ask value.
func AskOnly(ask float64) TwoWay {
	return TwoWay{ask: ask, hasAsk: true}
}

// Validate checks the sidedness invariant.
func (q TwoWay) Validate() error {
	if !q.hasBid && !q.hasAsk {
		return ErrEmpty
	}
	if q.hasBid && q.hasAsk && q.bid > q.ask {
		return ErrCrossed
	}
	return nil
}

// Bid returns the bid side and whether it is present.
func (q TwoWay) Bid() (float64, bool) {
	return q.bid, q.hasBid
}

// Ask returns the ask side and whether it is present.
func (q TwoWay) Ask() (float64, bool) {
	return q.ask, q.hasAsk
}

// BidSide returns the bid when present, otherwise the ask. Using the present
// side keeps one-sided quotes usable in sided algebra.
func (q TwoWay) BidSide() float64 {
	if q.hasBid {
		return q.bid
	}
	return q.ask
}

// AskSide returns the ask when present, otherwise the bid.
func (q TwoWay) AskSide() float64 {
	if q.hasAsk {
		return q.ask
	}
	return q.bid
}

// Mid returns the average of both sides, or the single present side.
// Mid of an empty value is 0.
func (q TwoWay) Mid() float64 {
	switch {
	case q.hasBid && q.hasAsk:
		return (q.bid + q.ask) / 2
	case q.hasBid:
		return q.bid
	case q.hasAsk:
		return q.ask
	default:
		return 0
	}
}

// IsEmpty reports whether neither side is present.
func (q TwoWay) IsEmpty() bool {
	return !q.hasBid && !q.hasAsk
}
