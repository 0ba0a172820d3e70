package thortful

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultSwapURL is the production face-swap endpoint. The variation
	// flag asks the card pipeline for the personalised render. Only the
	// www host completes renders; the api. host accepts the same request
	// and then times out around 60s.
	DefaultSwapURL = "https://www.thortful.com/api/v1/faceswap?variation=true"
	// swapTimeout is generous: v4 card renders have been observed to take
	// several minutes.
	swapTimeout = 300 * time.Second
)

// doer abstracts the single http.Client method we use, enabling test mocks.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Thortful APIs.
type Client struct {
	apiKey      string
	apiSecret   string
	authBaseURL string
	swapURL     string
	cdnBaseURL  string
	http        doer
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	APIKey      string
	APISecret   string
	AuthBaseURL string // defaults to DefaultAuthBaseURL
	SwapURL     string // defaults to DefaultSwapURL
	CDNBaseURL  string // defaults to DefaultCDNBaseURL
	// For testing: inject a mock HTTP client.
	HTTPClient doer
}

// New creates a Thortful API client. API credentials are only needed for
// Authenticate; CDN downloads and swaps with cached auth work without them.
func New(opts ClientOpts) (*Client, error) {
	c := &Client{
		apiKey:      opts.APIKey,
		apiSecret:   opts.APISecret,
		authBaseURL: opts.AuthBaseURL,
		swapURL:     opts.SwapURL,
		cdnBaseURL:  opts.CDNBaseURL,
		http:        opts.HTTPClient,
	}
	if c.authBaseURL == "" {
		c.authBaseURL = DefaultAuthBaseURL
	}
	if c.swapURL == "" {
		c.swapURL = DefaultSwapURL
	}
	if c.cdnBaseURL == "" {
		c.cdnBaseURL = DefaultCDNBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: swapTimeout}
	}
	return c, nil
}

// swapPayload carries both id spellings because the endpoint has accepted
// different ones across releases.
type swapPayload struct {
	SourceImage  string `json:"source_image"`
	TargetCardID string `json:"targetCardId"`
	TargetCardSn string `json:"target_card_id"`
}

type swapResponse struct {
	Image          string `json:"image"`
	ResultURL      string `json:"result_url"`
	GenerationTime string `json:"generation_time"`
}

// SwapResult holds the rendered card and response metadata.
type SwapResult struct {
	Image          []byte
	GenerationTime string
	Duration       time.Duration
	RawResponse    []byte
}

// Swap personalises the card identified by cardID with the base64-encoded
// source face and returns the rendered image. The response carries either
// inline base64 image data or a URL to fetch it from.
func (c *Client) Swap(ctx context.Context, auth *AuthHeaders, sourceB64, cardID string) (*SwapResult, error) {
	body, err := json.Marshal(swapPayload{
		SourceImage:  sourceB64,
		TargetCardID: cardID,
		TargetCardSn: cardID,
	})
	if err != nil {
		return nil, fmt.Errorf("thortful: marshal swap payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.swapURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("thortful: build swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	auth.apply(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thortful: swap: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("thortful: read swap response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thortful: swap failed: HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var sr swapResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("thortful: decode swap response: %w", err)
	}

	result := &SwapResult{
		GenerationTime: sr.GenerationTime,
		Duration:       time.Since(start),
		RawResponse:    raw,
	}

	switch {
	case sr.Image != "":
		img, err := base64.StdEncoding.DecodeString(sr.Image)
		if err != nil {
			return nil, fmt.Errorf("thortful: decode result image: %w", err)
		}
		result.Image = img
	case sr.ResultURL != "":
		img, err := c.fetchURL(ctx, sr.ResultURL)
		if err != nil {
			return nil, err
		}
		result.Image = img
	default:
		return nil, fmt.Errorf("thortful: swap response contained no image data")
	}
	return result, nil
}

// fetchURL downloads result bytes from a URL the swap response pointed at.
func (c *Client) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("thortful: build result fetch: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thortful: fetch result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thortful: fetch result: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
