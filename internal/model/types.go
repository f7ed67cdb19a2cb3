package model

import (
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Prices
// -----------------------------------------------------------------------------

// Symbol is a canonical (lower-case) asset ticker, e.g. "btc".
type Symbol string

// NormalizeSymbol returns the canonical form of a user-supplied ticker.
func NormalizeSymbol(s string) Symbol {
	return Symbol(strings.ToLower(strings.TrimSpace(s)))
}

// NormalizeSymbols normalizes a list of tickers, dropping blanks and duplicates.
// Order of first appearance is kept.
func NormalizeSymbols(in []string) []Symbol {
	out := make([]Symbol, 0, len(in))
	seen := make(map[Symbol]struct{}, len(in))
	for _, s := range in {
		sym := NormalizeSymbol(s)
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

// String implements fmt.Stringer.
func (s Symbol) String() string {
	return string(s)
}

// Prices maps symbols to their USD price.
//
// Depending on where it comes from, a Prices value is either the partial
// result of a single tick or the cumulative latest-known mapping.
type Prices map[Symbol]float64

// Clone returns an independent copy. Clone of nil is an empty mapping.
func (p Prices) Clone() Prices {
	out := make(Prices, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge writes every entry of partial into p, overwriting existing keys.
// Keys absent from partial keep their previous value.
func (p Prices) Merge(partial Prices) {
	for k, v := range partial {
		p[k] = v
	}
}

// Get returns the price for sym and whether it is known.
func (p Prices) Get(sym Symbol) (float64, bool) {
	v, ok := p[sym]
	return v, ok
}

// PriceUpdate is a single pushed price for one symbol.
type PriceUpdate struct {
	Symbol     Symbol    // Canonical symbol
	Price      float64   // USD
	Source     string    // "ws", "rest", ...
	ReceivedAt time.Time // Local receive time
}

// Prices returns the update as a one-entry mapping.
func (u PriceUpdate) Prices() Prices {
	return Prices{u.Symbol: u.Price}
}
