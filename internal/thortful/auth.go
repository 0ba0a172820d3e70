// Package thortful is an HTTP client for the Thortful card-personalization
// API: two-step authentication, the face-swap endpoint and card image
// downloads.
package thortful

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultAuthBaseURL is the site API used for the two-step login.
	DefaultAuthBaseURL = "https://www.thortful.com/api/v1"
	// defaultDeviceID matches the device the API credentials were issued for.
	defaultDeviceID = "138646727456842631071254396374222"
	userAgent       = "swapbench/1.0"
	platformName    = "swapbench"
)

// AuthHeaders is the header set the face-swap endpoint requires. The JSON
// tags match the wire header names so a cached file reads the same as the
// request headers it produces.
type AuthHeaders struct {
	APIKey     string    `json:"API_KEY"`
	APISecret  string    `json:"API_SECRET"`
	UserToken  string    `json:"user_token"`
	CustomerID string    `json:"x-thortful-customer-id"`
	SavedAt    time.Time `json:"timestamp"`
}

// apply sets the auth headers on an outgoing request.
func (h *AuthHeaders) apply(req *http.Request) {
	req.Header.Set("API_KEY", h.APIKey)
	req.Header.Set("API_SECRET", h.APISecret)
	req.Header.Set("user_token", h.UserToken)
	req.Header.Set("x-thortful-customer-id", h.CustomerID)
	req.Header.Set("platform", platformName)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", userAgent)
}

// LoginOpts holds the account credentials for the login step.
type LoginOpts struct {
	Email    string
	Password string
	DeviceID string // defaults to defaultDeviceID
}

// enquireResponse covers the key spellings the endpoint has been seen to use.
type enquireResponse struct {
	AnonymousToken  string `json:"anonymous_token"`
	Token           string `json:"token"`
	AnonymousToken2 string `json:"anonymousToken"`
}

func (r *enquireResponse) anonymous() string {
	for _, t := range []string{r.AnonymousToken, r.Token, r.AnonymousToken2} {
		if t != "" {
			return t
		}
	}
	return ""
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	JWT         string `json:"jwt"`
	UserID      string `json:"user_id"`
	ProfileID   string `json:"profile_id"`
	ID          string `json:"id"`
}

func (r *loginResponse) userToken() string {
	for _, t := range []string{r.Token, r.AccessToken, r.JWT} {
		if t != "" {
			return t
		}
	}
	return ""
}

func (r *loginResponse) customerID() string {
	for _, id := range []string{r.ProfileID, r.UserID, r.ID} {
		if id != "" {
			return id
		}
	}
	return ""
}

// Authenticate performs the two-step login: fetch an anonymous token from
// /auth/enquire, then exchange it plus account credentials for a user token.
func (c *Client) Authenticate(ctx context.Context, opts LoginOpts) (*AuthHeaders, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, fmt.Errorf("thortful: API key and secret are required to log in")
	}
	anon, err := c.enquire(ctx)
	if err != nil {
		return nil, err
	}

	if opts.DeviceID == "" {
		opts.DeviceID = defaultDeviceID
	}
	form := url.Values{
		"address":         {opts.Email},
		"password":        {opts.Password},
		"anonymous_token": {anon},
		"device_id":       {opts.DeviceID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authBaseURL+"/auth/thortful/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("thortful: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	c.applyAPICredentials(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thortful: login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("thortful: read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("thortful: login failed: HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("thortful: decode login response: %w", err)
	}
	token := lr.userToken()
	if token == "" {
		return nil, fmt.Errorf("thortful: login response contained no user token")
	}

	return &AuthHeaders{
		APIKey:     c.apiKey,
		APISecret:  c.apiSecret,
		UserToken:  token,
		CustomerID: lr.customerID(),
		SavedAt:    time.Now(),
	}, nil
}

// enquire fetches an anonymous token.
func (c *Client) enquire(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBaseURL+"/auth/enquire", nil)
	if err != nil {
		return "", fmt.Errorf("thortful: build enquire request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyAPICredentials(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("thortful: enquire: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("thortful: read enquire response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("thortful: enquire failed: HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var er enquireResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return "", fmt.Errorf("thortful: decode enquire response: %w", err)
	}
	token := er.anonymous()
	if token == "" {
		return "", fmt.Errorf("thortful: enquire response contained no anonymous token")
	}
	return token, nil
}

func (c *Client) applyAPICredentials(req *http.Request) {
	req.Header.Set("API_KEY", c.apiKey)
	req.Header.Set("API_SECRET", c.apiSecret)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", "https://www.thortful.com")
	req.Header.Set("Referer", "https://www.thortful.com/")
}

// SaveAuth writes auth headers to a JSON cache file.
func SaveAuth(path string, h *AuthHeaders) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("thortful: create auth cache dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("thortful: marshal auth headers: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("thortful: write auth cache: %w", err)
	}
	return nil
}

// LoadAuth reads cached auth headers. Returns nil without error if the cache
// file does not exist.
func LoadAuth(path string) (*AuthHeaders, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("thortful: read auth cache: %w", err)
	}
	var h AuthHeaders
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("thortful: parse auth cache %s: %w", path, err)
	}
	if h.UserToken == "" {
		return nil, nil
	}
	return &h, nil
}
