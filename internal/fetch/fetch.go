package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Defaults used when no option overrides them.
const (
	DefaultMaxAttempts    = 3
	DefaultDelay          = 500 * time.Millisecond
	DefaultAttemptTimeout = 15 * time.Second
)

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// FetchError is returned once every attempt has failed.
type FetchError struct {
	Attempts int
	Err      error // Last underlying cause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsCanceled reports whether err means the caller gave up.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Fetcher executes HTTP requests with a bounded, fixed-delay retry policy.
type Fetcher struct {
	httpClient     *http.Client
	logger         *slog.Logger
	maxAttempts    int
	delay          time.Duration
	attemptTimeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// New creates a Fetcher. A nil http.Client uses http.DefaultClient.
func New(hc *http.Client, opts ...Option) *Fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	f := &Fetcher{
		httpClient:     hc,
		logger:         slog.Default(),
		maxAttempts:    DefaultMaxAttempts,
		delay:          DefaultDelay,
		attemptTimeout: DefaultAttemptTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.maxAttempts < 1 {
		f.maxAttempts = 1
	}

	return f
}

// WithMaxAttempts sets the total number of attempts (clamped to >= 1).
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		f.maxAttempts = n
	}
}

// WithDelay sets the fixed pause between attempts.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.delay = d
	}
}

// WithAttemptTimeout sets the absolute timeout of a single attempt.
// Zero disables the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.attemptTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// MaxAttempts returns the configured attempt budget.
func (f *Fetcher) MaxAttempts() int {
	return f.maxAttempts
}

// Fetch performs req until it yields a 2xx body or the attempt budget is spent.
//
// Cancellation of ctx is returned as-is (errors.Is(err, context.Canceled))
// without further attempts. Exhaustion returns a *FetchError wrapping the
// last cause.
func (f *Fetcher) Fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			f.logger.Debug("retrying request",
				"attempt", attempt,
				"delay", f.delay,
				"url", req.URL.Redacted(),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.delay):
			}
		}

		body, err := f.do(ctx, req)
		if err == nil {
			return body, nil
		}

		// The caller gave up: do not retry and do not wrap as a failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if IsCanceled(err) {
			return nil, err
		}

		lastErr = err
	}

	return nil, &FetchError{Attempts: f.maxAttempts, Err: lastErr}
}

// do runs a single attempt under its own timeout.
func (f *Fetcher) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if f.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.attemptTimeout)
		defer cancel()
	}

	attemptReq := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		attemptReq.Body = body
	}

	resp, err := f.httpClient.Do(attemptReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}
