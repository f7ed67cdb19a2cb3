// Package fetch implements the bounded-retry HTTP fetcher shared by the
// price and news clients.
//
// Policy:
//   - Up to MaxAttempts attempts (first attempt + MaxAttempts-1 retries)
//   - Non-2xx statuses are failures, retried like transport errors
//   - Caller cancellation is never retried and propagates immediately
//   - Fixed delay between attempts, no jitter
//   - Each attempt has its own absolute timeout
package fetch
