// Package nlp is the client for the NER model backends. Two instances are
// deployed in practice: a general clinical tagger and a disease/chemical
// specialist; both speak the same span-detection contract.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Mention is a detected span with its model label and confidence score.
type Mention struct {
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Client calls a NER tagging backend over HTTP.
type Client struct {
	BaseURL string
	name    string

	HTTPClient *http.Client
}

func NewClient(baseURL, name string) *Client {
	return &Client{BaseURL: baseURL, name: name}
}

// Name identifies the model in logs and stage messages.
func (c *Client) Name() string { return c.name }

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Mentions []Mention `json:"mentions"`
	Error    string    `json:"error,omitempty"`
}

// Detect runs the tagger on the given text and returns detected mentions.
func (c *Client) Detect(ctx context.Context, text string) ([]Mention, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("nlp: base URL required")
	}

	reqBody, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ner", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlp: %s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nlp: %s returned %d", c.name, resp.StatusCode)
	}

	var payload detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("nlp: decode %s response: %w", c.name, err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("nlp: %s: %s", c.name, payload.Error)
	}

	return payload.Mentions, nil
}

// Available probes the backend health endpoint.
func (c *Client) Available(ctx context.Context) bool {
	if c.BaseURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
