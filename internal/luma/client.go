package luma

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lumacheckin/internal/shared/metrics"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultBaseURL = "https://public-api.luma.com"
	APIKeyHeader   = "x-luma-api-key"

	pathGetGuest          = "/v1/event/get-guest"
	pathGetGuests         = "/v1/event/get-guests"
	pathUpdateGuestStatus = "/v1/event/update-guest-status"

	// upstream bodies are small JSON documents; cap what we read
	maxBodyBytes = 8 << 20
)

// ErrMissingAPIKey is returned by every call when no API key is configured
var ErrMissingAPIKey = errors.New("luma api key is not configured")

// APIError is a non-2xx answer from Luma that the caller should surface
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("luma responded %d: %s", e.StatusCode, e.Body)
}

// Config holds the Luma client configuration
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the public Luma event API
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a pooled transport
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetGuest looks a guest up directly by ticket key. Not every account exposes
// this endpoint, so a non-2xx answer yields an empty id and no error.
func (c *Client) GetGuest(ctx context.Context, eventID, ticketKey string) (string, error) {
	q := url.Values{}
	q.Set("event_id", eventID)
	q.Set("pk", ticketKey)

	status, body, err := c.do(ctx, http.MethodGet, pathGetGuest, q, nil)
	if err != nil {
		return "", err
	}
	if !isOK(status) {
		return "", nil
	}

	var resp guestLookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode get-guest response: %w", err)
	}
	return resp.identifier(), nil
}

// ListGuests returns every guest of the event. A non-2xx answer yields an
// empty list and no error.
func (c *Client) ListGuests(ctx context.Context, eventID string) ([]Guest, error) {
	q := url.Values{}
	q.Set("event_id", eventID)

	status, body, err := c.do(ctx, http.MethodGet, pathGetGuests, q, nil)
	if err != nil {
		return nil, err
	}
	if !isOK(status) {
		return nil, nil
	}

	guests, err := decodeGuests(body)
	if err != nil {
		return nil, fmt.Errorf("decode get-guests response: %w", err)
	}
	return guests, nil
}

// UpdateGuestStatus sets the guest's status for the event. A non-2xx answer
// is returned as *APIError carrying Luma's response text.
func (c *Client) UpdateGuestStatus(ctx context.Context, eventID, guestID string, status GuestStatus) error {
	payload, err := json.Marshal(updateGuestStatusRequest{
		EventID: eventID,
		GuestID: guestID,
		Status:  status,
	})
	if err != nil {
		return fmt.Errorf("encode update-guest-status request: %w", err)
	}

	code, body, err := c.do(ctx, http.MethodPost, pathUpdateGuestStatus, nil, payload)
	if err != nil {
		return err
	}
	if !isOK(code) {
		return &APIError{StatusCode: code, Body: string(body)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) (int, []byte, error) {
	if !c.Configured() {
		return 0, nil, ErrMissingAPIKey
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(path, 0, started)
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(path, resp.StatusCode, started)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

// decodeGuests accepts {"guests": [...]} as well as a bare array
func decodeGuests(body []byte) ([]Guest, error) {
	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var guests []Guest
		if err := json.Unmarshal(trimmed, &guests); err != nil {
			return nil, err
		}
		return guests, nil
	}

	var envelope struct {
		Guests jsoniter.RawMessage `json:"guests"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(envelope.Guests), []byte("[")) {
		return nil, nil
	}

	var resp guestListResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, err
	}
	return resp.Guests, nil
}

func isOK(status int) bool {
	return status >= 200 && status < 300
}
