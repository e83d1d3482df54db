// Package tool provides the shared HTTP client for upstream lookups.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flynn-ai/scout/internal/errors"
)

// Client performs JSON GET requests against upstream data sources.
//
// Transient upstream failures are retried with backoff. This is the
// only place in the system that retries: tool-internal I/O may, the
// dispatch loop and gateway never do.
type Client struct {
	http   *http.Client
	policy *errors.Policy
}

// NewClient creates a lookup client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		policy: errors.LookupPolicy(),
	}
}

// GetJSON fetches url and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := errors.DoWithResult(ctx, c.policy, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to create request", errors.CategoryPermanent)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(err, errors.CodeNetworkTimeout, "lookup canceled", errors.CategoryPermanent)
			}
			return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "lookup request failed", errors.CategoryTemporary)
		}

		b, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, errors.Wrap(readErr, errors.CodeNetworkUnavailable, "failed to read lookup response", errors.CategoryTemporary)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return b, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, errors.Temporary(errors.CodeNetworkUnavailable, fmt.Sprintf("upstream returned %s", resp.Status))
		default:
			return nil, errors.Permanent(errors.CodeNetworkUnavailable, fmt.Sprintf("upstream returned %s", resp.Status))
		}
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, errors.CodeToolExecutionFailed, "failed to parse upstream response", errors.CategoryPermanent)
	}
	return nil
}
