// Package symbol translates user-facing tickers to upstream provider ids.
package symbol

import (
	"github.com/cryptosage/pricefeed/internal/model"
)

// Resolver maps symbols to provider ids and back.
type Resolver interface {
	// ToProviderID returns the provider id for sym (sym itself if unmapped).
	ToProviderID(sym model.Symbol) string

	// ToSymbol finds the candidate whose provider id equals id.
	// Falls back to id itself when no candidate matches.
	ToSymbol(id string, candidates []model.Symbol) model.Symbol
}

// coinGeckoIDs is the static CoinGecko id table.
var coinGeckoIDs = map[model.Symbol]string{
	"btc":    "bitcoin",
	"eth":    "ethereum",
	"bnb":    "binancecoin",
	"usdt":   "tether",
	"usdc":   "usd-coin",
	"ada":    "cardano",
	"xrp":    "ripple",
	"sol":    "solana",
	"doge":   "dogecoin",
	"matic":  "matic-network",
	"dot":    "polkadot",
	"avax":   "avalanche-2",
	"trx":    "tron",
	"bch":    "bitcoin-cash",
	"xlm":    "stellar",
	"link":   "chainlink",
	"sui":    "sui",
	"wsteth": "wrapped-steth",
	"wbtc":   "wrapped-bitcoin",
	"steth":  "staked-ether",
	"hype":   "hyperliquid",
	"leo":    "leo-token",
}

// Mapper is an immutable symbol <-> provider id table.
type Mapper struct {
	ids map[model.Symbol]string
}

// NewMapper builds a Mapper from a symbol -> id table. Keys are normalized;
// the table is copied so later changes to table have no effect.
func NewMapper(table map[string]string) *Mapper {
	ids := make(map[model.Symbol]string, len(table))
	for sym, id := range table {
		ids[model.NormalizeSymbol(sym)] = id
	}
	return &Mapper{ids: ids}
}

// NewCoinGecko returns the mapper for CoinGecko ids.
func NewCoinGecko() *Mapper {
	ids := make(map[model.Symbol]string, len(coinGeckoIDs))
	for sym, id := range coinGeckoIDs {
		ids[sym] = id
	}
	return &Mapper{ids: ids}
}

// Identity returns a mapper with no entries: every symbol is its own id.
func Identity() *Mapper {
	return &Mapper{ids: map[model.Symbol]string{}}
}

// ToProviderID implements Resolver. Lookup is case-insensitive.
func (m *Mapper) ToProviderID(sym model.Symbol) string {
	sym = model.NormalizeSymbol(string(sym))
	if id, ok := m.ids[sym]; ok {
		return id
	}
	return string(sym)
}

// ToSymbol implements Resolver.
func (m *Mapper) ToSymbol(id string, candidates []model.Symbol) model.Symbol {
	for _, c := range candidates {
		if m.ToProviderID(c) == id {
			return model.NormalizeSymbol(string(c))
		}
	}
	return model.NormalizeSymbol(id)
}

// ProviderIDs maps each symbol to its provider id through r, keeping order.
func ProviderIDs(r Resolver, symbols []model.Symbol) []string {
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		ids = append(ids, r.ToProviderID(s))
	}
	return ids
}
