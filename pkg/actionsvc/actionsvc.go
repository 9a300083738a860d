// Package actionsvc invokes the device action endpoint.
package actionsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	URL     string        `split_words:"true" required:"true"`
	APIKey  string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"15s"`
}

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

type invokeRequest struct {
	Action   string `json:"Action"`
	DeviceID string `json:"deviceID"`
}

type invokeResponse struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("action service url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Invoke performs action on target. A non-2xx statusCode in the response
// envelope is an error carrying the body.
func (c *Client) Invoke(ctx context.Context, action string, target string) (string, error) {
	payload, err := json.Marshal(invokeRequest{Action: action, DeviceID: target})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("action request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read action response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("action status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out invokeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode action response: %w", err)
	}

	body := bodyText(out.Body)
	if out.StatusCode < 200 || out.StatusCode >= 300 {
		return "", fmt.Errorf("action %s on %s failed with status %d: %s", action, target, out.StatusCode, body)
	}
	return body, nil
}

// bodyText unquotes a JSON string body and returns any other JSON as-is.
func bodyText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
