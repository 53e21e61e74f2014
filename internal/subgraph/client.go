// Package subgraph queries a Graph-protocol indexer for pair swaps.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"pulsex-swap-sync/internal/domain"
	"pulsex-swap-sync/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 8 << 20
)

// HTTPClient fetches swaps from a subgraph over HTTP. It never retries:
// a failed fetch is retried by the next invocation.
type HTTPClient struct {
	endpoint     string
	client       *http.Client
	maxBodyBytes int64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) ClientOption {
	return func(c *HTTPClient) {
		c.maxBodyBytes = n
	}
}

// NewHTTPClient creates a new subgraph HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSwaps returns up to q.First swaps of q.Pair with timestamp > q.After,
// in ascending timestamp order. Filtering and ordering happen server-side.
func (c *HTTPClient) FetchSwaps(ctx context.Context, q SwapsQuery) ([]domain.SwapEvent, error) {
	if q.First <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", q.First)
	}

	var data swapsData
	if err := c.do(ctx, swapsQuery, q.variables(), &data); err != nil {
		return nil, err
	}

	events := make([]domain.SwapEvent, 0, len(data.Swaps))
	for i, raw := range data.Swaps {
		ev, err := raw.toEvent()
		if err != nil {
			return nil, fmt.Errorf("%w: swaps[%d]: %w", ErrInvalidResponse, i, err)
		}
		events = append(events, ev)
	}

	if err := checkOrder(events, q.After); err != nil {
		return nil, err
	}
	if len(events) > q.First {
		return nil, fmt.Errorf("%w: requested %d swaps, got %d", ErrInvalidResponse, q.First, len(events))
	}

	return events, nil
}

// do posts one GraphQL request and decodes its data member into out.
// A missing or null data member leaves out untouched.
func (c *HTTPClient) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordUpstreamLatency("error", time.Since(start).Seconds())
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	observability.RecordUpstreamLatency(strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if int64(len(respBody)) > c.maxBodyBytes {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidResponse, c.maxBodyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if len(envelope.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}

	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: data: %w", ErrInvalidResponse, err)
	}
	return nil
}

// checkOrder enforces the resume invariant on a fetched page.
func checkOrder(events []domain.SwapEvent, after int64) error {
	prev := after
	for i, ev := range events {
		if ev.Timestamp <= after {
			return fmt.Errorf("%w: swaps[%d] timestamp %d not after watermark %d",
				ErrInvalidResponse, i, ev.Timestamp, after)
		}
		if ev.Timestamp < prev {
			return fmt.Errorf("%w: swaps[%d] timestamp %d precedes %d",
				ErrInvalidResponse, i, ev.Timestamp, prev)
		}
		prev = ev.Timestamp
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CloseIdleConnections releases pooled connections held by the client.
func (c *HTTPClient) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}
