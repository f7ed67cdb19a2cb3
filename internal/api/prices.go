package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/symbol"
)

// SimplePrice fetches USD prices for the given provider ids in one request.
func (c *Client) SimplePrice(ctx context.Context, ids []string) (SimplePriceResponse, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")

	var resp SimplePriceResponse
	if err := c.get(ctx, "/simple/price", query, &resp); err != nil {
		return nil, fmt.Errorf("get simple price: %w", err)
	}

	return resp, nil
}

// FetchPrices fetches the batch for symbols and translates it back to symbols.
func (c *Client) FetchPrices(ctx context.Context, symbols []model.Symbol, resolver symbol.Resolver) (model.Prices, error) {
	resp, err := c.SimplePrice(ctx, symbol.ProviderIDs(resolver, symbols))
	if err != nil {
		return nil, err
	}
	return DecodePrices(resp, symbols, resolver), nil
}

// DecodePrices converts a /simple/price response to a symbol-keyed mapping.
//
// Provider ids are translated with resolver against the requested symbols.
// Entries without a valid non-negative "usd" number are dropped.
func DecodePrices(resp SimplePriceResponse, symbols []model.Symbol, resolver symbol.Resolver) model.Prices {
	prices := make(model.Prices, len(resp))
	for id, raw := range resp {
		var entry simplePriceEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.USD == nil || *entry.USD < 0 {
			continue
		}
		prices[resolver.ToSymbol(id, symbols)] = *entry.USD
	}
	return prices
}
