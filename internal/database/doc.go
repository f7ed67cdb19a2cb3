// Package database provides the TimescaleDB connection pool and schema for
// recorded price ticks.
//
// Ticks land in the price_ticks hypertable, keyed by (symbol, time) so
// replays of the same tick are ignored.
package database
