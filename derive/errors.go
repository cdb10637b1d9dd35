package derive

import "fmt"

// ValidationError reports malformed input detected before any external
// call. It is never silently repaired.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// TransportError reports a market-data fetch failure. For FX legs one
// structural fallback (the alternate ticker direction) has already been
// attempted before this error is produced; the anchor curve has no
// fallback.
type TransportError struct {
	Ticker string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Ticker, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DerivationError is the hard derivation failure: rd and rf both read back
// as exactly 0/0 even after the caller's single forced retry.
type DerivationError struct {
	Pair string
	Leg  string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derivation: %s %s: rd and rf both resolved to zero", e.Pair, e.Leg)
}
