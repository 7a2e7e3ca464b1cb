package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxResponseBytes caps upstream bodies when no explicit limit is given.
const DefaultMaxResponseBytes int64 = 2 << 20

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Response is a fully read, size-limited upstream response.
type Response struct {
	StatusCode int
	Body       []byte
}

// PostJSON marshals payload, posts it with the given headers, and reads at most maxBytes of the reply.
// A body larger than maxBytes is an error.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}, maxBytes int64) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBytes)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
