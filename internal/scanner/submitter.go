package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lumacheckin/internal/checkin"
	"lumacheckin/internal/ticket"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CheckinPath is where the server mounts the check-in endpoint
const CheckinPath = "/api/checkin"

// HTTPSubmitter posts references to a running check-in server
type HTTPSubmitter struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSubmitter targets baseURL + CheckinPath. A nil client gets a 30s timeout.
func NewHTTPSubmitter(baseURL string, client *http.Client) *HTTPSubmitter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSubmitter{
		endpoint: strings.TrimRight(baseURL, "/") + CheckinPath,
		client:   client,
	}
}

// Submit posts {eventId, pk}. Error bodies come back as a Result with OK
// unset; only transport and decoding faults are returned as errors.
func (h *HTTPSubmitter) Submit(ctx context.Context, ref ticket.Reference) (checkin.Result, error) {
	var res checkin.Result

	payload, err := json.Marshal(checkin.CheckinRequest{EventID: ref.EventID, PK: ref.TicketKey})
	if err != nil {
		return res, fmt.Errorf("encode check-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return res, fmt.Errorf("build check-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return res, fmt.Errorf("post check-in: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return res, fmt.Errorf("read check-in response: %w", err)
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return res, fmt.Errorf("decode check-in response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.OK = false
		if res.Error == "" {
			res.Error = http.StatusText(resp.StatusCode)
		}
	}
	return res, nil
}
