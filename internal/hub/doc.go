// Package hub implements the price aggregator / publisher hub.
//
// The Hub:
//   - Accepts partial price mappings from any number of producers
//   - Merges them key-by-key into a latest-known mapping (last arrival wins)
//   - Broadcasts every merged snapshot to all current subscribers, in order
//   - Never replays history to new subscribers (use Snapshot instead)
//
// Each subscriber owns an unbounded queue drained by its own goroutine, so a
// slow consumer never blocks producers or other subscribers.
package hub
