// Package sink delivers RAG payloads to the external generation service.
//
// The client is deliberately dumb: one JSON POST per payload, with the
// response classified as accepted, rejected (4xx, not worth retrying) or
// transient (everything else). Retry policy lives in the dispatcher, not
// here.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrRejected indicates the sink refused the payload with a 4xx status.
// Retrying an identical payload cannot succeed, so the dispatcher treats
// this as permanent.
var ErrRejected = errors.New("sink rejected payload")

// Client posts JSON payloads to the configured sink endpoint.
//
// Client is safe for concurrent use.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a sink client for the given endpoint URL.
// timeout bounds each delivery attempt. logger may be nil.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Deliver posts the payload as JSON.
// Returns nil on a 2xx response, ErrRejected on a 4xx response, and a
// transient error otherwise (network failure, timeout, 5xx).
func (c *Client) Deliver(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshaling payload: %v", ErrRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delivering payload: %w", err)
	}
	defer func() {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Debug("payload delivered", "status", resp.StatusCode)
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("sink returned status %d", resp.StatusCode)
	}
}
