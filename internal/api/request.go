package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cryptosage/pricefeed/internal/version"
)

// ErrDecode matches every *DecodeError via errors.Is.
var ErrDecode = errors.New("decode response")

// DecodeError means the response body did not have the expected JSON shape.
// It is never retried.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// get performs a GET request through the retrying fetcher and decodes the body.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	body, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &DecodeError{Path: path, Err: err}
	}

	return nil
}
