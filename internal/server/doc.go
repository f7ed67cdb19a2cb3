// Package server exposes the aggregated prices and news over HTTP.
//
// Routes:
//   - GET /health              component status
//   - GET /prices              latest snapshot
//   - GET /prices/:symbol      one symbol, falling back to the Redis mirror
//   - GET /stream?symbols=...  server-sent price mappings from a PriceService
//   - GET /news?limit=n        latest crypto headlines
package server
