// Package nightscout is a read-only client for the Nightscout API, the
// upstream feed this system syncs glucose readings and pump profiles from.
// It translates transport failures into the domain error taxonomy; it never
// retries.
package nightscout

import (
	"context"
	"crypto/sha1" //nolint:gosec // The upstream API authenticates with a SHA-1 digest of the secret
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AaronPrager/boostT1D-sub001/internal/models"
)

// DefaultTimeout bounds every upstream call
const DefaultTimeout = 30 * time.Second

// Client handles communication with the upstream feed
type Client struct {
	baseURL    string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a client with the default timeout. The base URL is
// free-text configuration and is normalized here: a missing scheme becomes
// https and a trailing slash is stripped.
func NewClient(baseURL, apiSecret string) *Client {
	return NewClientWithHTTP(baseURL, apiSecret, &http.Client{Timeout: DefaultTimeout})
}

// NewClientWithHTTP creates a client with a caller-supplied HTTP client,
// for substitutable transports in tests.
func NewClientWithHTTP(baseURL, apiSecret string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    normalizeBaseURL(baseURL),
		apiSecret:  apiSecret,
		httpClient: httpClient,
	}
}

func normalizeBaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, "/")
	if s != "" && !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return s
}

// hashSecret generates the SHA-1 hex digest of the API secret. The raw
// secret is never transmitted; the upstream API expects the digest.
func hashSecret(secret string) string {
	hasher := sha1.New() //nolint:gosec // Upstream API scheme
	hasher.Write([]byte(secret))
	return hex.EncodeToString(hasher.Sum(nil))
}

func (c *Client) buildRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if c.apiSecret != "" {
		req.Header.Set("api-secret", hashSecret(c.apiSecret))
	}

	return req, nil
}

// doRequest executes a request and maps failures onto the error taxonomy
func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w (verify the raw API secret is configured, not its hash)", ErrAuthentication)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

func classifyTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// FetchProfile retrieves the current pump-profile document. The endpoint
// returns an array of profile documents; the first element is the one in
// force. An empty array yields a nil document: the caller's normalization
// step turns that into its "no usable profile" error.
func (c *Client) FetchProfile(ctx context.Context) (json.RawMessage, error) {
	req, err := c.buildRequest(ctx, "/api/v1/profile.json", nil)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(body, &docs); err != nil {
		return nil, fmt.Errorf("%w: profile endpoint did not return an array: %v", ErrMalformedResponse, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Window bounds an entries fetch
type Window struct {
	From  time.Time
	To    time.Time
	Count int
}

// FetchEntries retrieves glucose entries within the window
func (c *Client) FetchEntries(ctx context.Context, window Window) ([]models.Entry, error) {
	params := url.Values{}
	if !window.From.IsZero() {
		params.Set("find[date][$gte]", fmt.Sprintf("%d", window.From.UnixMilli()))
	}
	if !window.To.IsZero() {
		params.Set("find[date][$lte]", fmt.Sprintf("%d", window.To.UnixMilli()))
	}
	if window.Count > 0 {
		params.Set("count", fmt.Sprintf("%d", window.Count))
	}

	req, err := c.buildRequest(ctx, "/api/v1/entries/sgv", params)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var entries []models.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: entries endpoint did not return an array: %v", ErrMalformedResponse, err)
	}
	return entries, nil
}

// FetchTreatments retrieves the most recent care events
func (c *Client) FetchTreatments(ctx context.Context, count int) ([]models.Treatment, error) {
	params := url.Values{}
	if count > 0 {
		params.Set("count", fmt.Sprintf("%d", count))
	}

	req, err := c.buildRequest(ctx, "/api/v1/treatments", params)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var treatments []models.Treatment
	if err := json.Unmarshal(body, &treatments); err != nil {
		return nil, fmt.Errorf("%w: treatments endpoint did not return an array: %v", ErrMalformedResponse, err)
	}
	return treatments, nil
}

// Status retrieves the upstream server status, used to distinguish an
// unreachable upstream from one that simply has no data.
func (c *Client) Status(ctx context.Context) (*models.ServerStatus, error) {
	req, err := c.buildRequest(ctx, "/api/v1/status.json", nil)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var status models.ServerStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%w: parsing status: %v", ErrMalformedResponse, err)
	}
	return &status, nil
}
