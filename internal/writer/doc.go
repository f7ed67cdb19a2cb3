// Package writer records price changes to TimescaleDB.
//
// The PriceWriter subscribes to the hub, turns each cumulative snapshot into
// rows for the symbols whose price changed, and inserts them in batches.
// Writes are append-only; duplicate (symbol, time) keys are ignored.
package writer
