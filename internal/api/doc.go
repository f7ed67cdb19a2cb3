// Package api provides the CoinGecko REST client used by the batch poller.
//
// REST endpoints:
//   - Production: https://api.coingecko.com/api/v3
//
// Only GET /simple/price is used:
//
//	/simple/price?ids=bitcoin,ethereum&vs_currencies=usd
//	-> {"bitcoin": {"usd": 65000.5}, "ethereum": {"usd": 3000}}
package api
