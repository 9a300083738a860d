// Package retrieval is a client for the knowledge-base search endpoint used
// by the rag destination.
package retrieval

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

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

type Config struct {
	URL     string        `split_words:"true" required:"true"`
	APIKey  string        `split_words:"true"`
	TopK    int           `split_words:"true" default:"4"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	endpoint   string
	apiKey     string
	topK       int
	httpClient *http.Client
}

var _ contractx.Retriever = (*Client)(nil)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Documents []contractx.Document `json:"documents"`
}

func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("retrieval url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, err
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 4
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		topK:       topK,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Retrieve(ctx context.Context, text string) ([]contractx.Document, error) {
	body, err := json.Marshal(searchRequest{Query: text, TopK: c.topK})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("retrieval status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode retrieval response: %w", err)
	}

	docs := make([]contractx.Document, 0, len(out.Documents))
	for _, d := range out.Documents {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}
