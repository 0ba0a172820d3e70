// Package segmind is an HTTP client for the Segmind image APIs: the
// faceswap-v2, faceswap-v4 and faceswap-v4.3 endpoints plus SDXL
// text-to-image for producing synthetic test images.
package segmind

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the production Segmind API root.
	DefaultBaseURL = "https://api.segmind.com/v1"
	// maxRetries is the max number of attempts for retryable failures.
	maxRetries = 3
	// retryBackoff is the constant sleep between retry attempts.
	retryBackoff = 5 * time.Second
	// defaultTimeout bounds a single swap request.
	defaultTimeout = 120 * time.Second
)

// Response headers Segmind attaches to successful swaps.
const (
	headerGenerationTime   = "X-Generation-Time"
	headerRemainingCredits = "X-Remaining-Credits"
	headerRequestID        = "X-Request-Id"
	headerOutputMetadata   = "X-Output-Metadata"
)

// doer abstracts the single http.Client method we use, enabling test mocks.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Segmind API with a fixed key and retry policy.
type Client struct {
	apiKey     string
	baseURL    string
	http       doer
	maxRetries int
	backoff    time.Duration
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	APIKey  string
	BaseURL string        // defaults to DefaultBaseURL
	Timeout time.Duration // per-request; defaults to defaultTimeout
	Retries int           // defaults to maxRetries
	Backoff time.Duration // between attempts; defaults to retryBackoff
	// For testing: inject a mock HTTP client.
	HTTPClient doer
}

// New creates a Segmind API client.
func New(opts ClientOpts) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("segmind: API key is required")
	}
	c := &Client{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		http:       opts.HTTPClient,
		maxRetries: opts.Retries,
		backoff:    opts.Backoff,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.maxRetries == 0 {
		c.maxRetries = maxRetries
	}
	if c.backoff == 0 {
		c.backoff = retryBackoff
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c, nil
}

// Result holds the image bytes and provider metadata from one API call.
type Result struct {
	Image            []byte
	StatusCode       int
	ContentType      string
	GenerationTime   string
	RemainingCredits string
	RequestID        string
	OutputMetadata   string
	Duration         time.Duration
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("segmind: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsTimeout reports whether err was caused by a request timeout, the one
// failure class the log distinguishes from generic request errors.
func IsTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// post sends one JSON POST and returns the raw response bytes plus metadata.
// Timeouts and 429/5xx responses are retried up to the configured attempt
// count with a constant backoff; 4xx responses fail immediately.
func (c *Client) post(ctx context.Context, endpoint string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("segmind: marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		res, err := c.postOnce(ctx, endpoint, body)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("segmind: %s failed after %d attempts: %w", endpoint, c.maxRetries, lastErr)
}

func (c *Client) postOnce(ctx context.Context, endpoint string, body []byte) (*Result, error) {
	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("segmind: build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("segmind: post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("segmind: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	return &Result{
		Image:            data,
		StatusCode:       resp.StatusCode,
		ContentType:      resp.Header.Get("Content-Type"),
		GenerationTime:   resp.Header.Get(headerGenerationTime),
		RemainingCredits: resp.Header.Get(headerRemainingCredits),
		RequestID:        resp.Header.Get(headerRequestID),
		OutputMetadata:   resp.Header.Get(headerOutputMetadata),
		Duration:         time.Since(start),
	}, nil
}

// retryable reports whether an attempt is worth repeating: timeouts and
// provider-side 429/5xx responses.
func retryable(err error) bool {
	if IsTimeout(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
