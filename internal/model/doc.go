// Package model defines shared data types used across the price feed.
//
// Conventions:
//   - Symbols: lower-case tickers ("btc"), see NormalizeSymbol
//   - Prices: float64 USD, never negative
//   - A symbol missing from Prices means no known price yet, not zero
//   - IDs: uuid.UUID for sessions, subscriptions and articles
package model
