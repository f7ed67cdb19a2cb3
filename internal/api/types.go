package api

import "encoding/json"

// SimplePriceResponse from GET /simple/price.
//
// Entries are kept raw so that one malformed entry does not fail the whole
// response; see DecodePrices.
type SimplePriceResponse map[string]json.RawMessage

// simplePriceEntry is the per-id payload, e.g. {"usd": 65000.5}.
type simplePriceEntry struct {
	USD *float64 `json:"usd"`
}
