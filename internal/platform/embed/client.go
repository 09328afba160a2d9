// Package embed is the client for the embedding backend used by ontology
// linking. The backend exposes an OpenAI-compatible /embeddings endpoint.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls the embedding backend over HTTP.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
}

func NewClient(baseURL, model string) *Client {
	return &Client{BaseURL: baseURL, Model: model}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed returns one vector per input string, in input order.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	if c.BaseURL == "" || c.Model == "" {
		return nil, fmt.Errorf("embed: base URL and model required")
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(embeddingRequest{Model: c.Model, Input: inputs})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("embed: %s", payload.Error.Message)
	}
	if len(payload.Data) != len(inputs) {
		return nil, fmt.Errorf("embed: expected %d vectors, got %d", len(inputs), len(payload.Data))
	}

	vectors := make([][]float64, len(inputs))
	for _, d := range payload.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embed: vector index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
