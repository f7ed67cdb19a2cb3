// Package poller implements the batch price poller.
//
// The Batch Poller:
//   - Fetches USD prices for a symbol set in one REST request per tick
//   - Ticks once immediately on Start, then on a fixed interval
//   - Runs at most one session; Start supersedes the running one
//   - Never surfaces errors to consumers: a failed tick simply emits nothing
//   - Drops results of ticks that finish after their session ended
package poller
