package fx

import "fmt"

// Pair is a currency pair. Base is the foreign (left) currency, Quote the
// domestic (right) currency of the conventional 6-character code.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair validates a 6-character uppercase pair code like "EURUSD".
func ParsePair(code string) (Pair, error) {
	if len(code) != 6 {
		return Pair{}, fmt.Errorf("ParsePair: %q: want 6 characters", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return Pair{}, fmt.Errorf("ParsePair: %q: want uppercase letters only", code)
		}
	}
	return Pair{Base: code[0:3], Quote: code[3:6]}, nil
}

// String returns the 6-character pair code.
func (p Pair) String() string {
	return p.Base + p.Quote
}

// Reversed returns the pair with base and quote swapped.
func (p Pair) Reversed() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

// Contains reports whether either side of the pair is ccy.
func (p Pair) Contains(ccy string) bool {
	return p.Base == ccy || p.Quote == ccy
}
