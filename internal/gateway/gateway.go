// Package gateway is the client-side HTTP submission path to the dispatch
// server.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/httpclient"
)

// ErrRejected marks a 4xx submission outcome: the payload is invalid and
// retrying it can never succeed.
var ErrRejected = errors.New("submission rejected")

type Client struct {
	baseURL    string
	httpClient *httpclient.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpclient.New(timeout),
	}
}

// Submit posts one emergency request and returns the server's dispatch
// result. Transport failures and 5xx responses return plain errors the
// queue treats as retryable; 4xx returns ErrRejected.
func (c *Client) Submit(ctx context.Context, req *domain.EmergencyRequest) (*domain.DispatchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(ctx, c.baseURL+"/api/v1/emergencies", body, nil)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result domain.DispatchResult
		if err := json.Unmarshal([]byte(resp.Body), &result); err != nil {
			return nil, fmt.Errorf("decode dispatch result: %w", err)
		}
		if result.RequestID != req.RequestID {
			return nil, fmt.Errorf("acknowledgement for %s does not match request %s", result.RequestID, req.RequestID)
		}
		return &result, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w (%d): %s", ErrRejected, resp.StatusCode, resp.Body)
	default:
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, resp.Body)
	}
}

// GetDispatch fetches the stored dispatch result for a request ID.
func (c *Client) GetDispatch(ctx context.Context, requestID string) (*domain.DispatchResult, error) {
	resp, err := c.httpClient.Get(ctx, c.baseURL+"/api/v1/dispatches/"+requestID)
	if err != nil {
		return nil, fmt.Errorf("fetch dispatch: %w", err)
	}
	if resp.StatusCode == 404 {
		return nil, fmt.Errorf("no dispatch recorded for %s", requestID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, resp.Body)
	}

	var result domain.DispatchResult
	if err := json.Unmarshal([]byte(resp.Body), &result); err != nil {
		return nil, fmt.Errorf("decode dispatch result: %w", err)
	}
	return &result, nil
}

// Healthy probes the server's liveness endpoint. Used by the connectivity
// monitor.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.httpClient.Get(ctx, c.baseURL+"/healthz")
	if err != nil {
		return false
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
