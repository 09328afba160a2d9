// Package ocr is the client for the OCR backend that converts scanned
// documents (pdf, jpg, png) to text. The backend is a fixed black-box
// service; this client only speaks its JSON contract.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Page is the recognized text of a single page or image region.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
}

// Result is the full recognition output with per-page provenance.
type Result struct {
	Text  string `json:"text"`
	Pages []Page `json:"pages,omitempty"`
}

// Client calls the OCR backend over HTTP.
type Client struct {
	BaseURL string

	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

type recognizeRequest struct {
	MediaType string `json:"media_type"`
	Content   string `json:"content"` // base64
}

type recognizeResponse struct {
	Text  string `json:"text"`
	Pages []Page `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Recognize sends the raw document bytes to the backend and returns the
// recognized text.
func (c *Client) Recognize(ctx context.Context, data []byte, mediaType string) (*Result, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("ocr: base URL required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ocr: empty document")
	}

	reqBody, err := json.Marshal(recognizeRequest{
		MediaType: mediaType,
		Content:   base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/recognize", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr: backend returned %d", resp.StatusCode)
	}

	var payload recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ocr: decode response: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("ocr: %s", payload.Error)
	}

	return &Result{Text: payload.Text, Pages: payload.Pages}, nil
}

// Available probes the backend health endpoint. A false return means the
// extraction stage must degrade for image and PDF input rather than crash.
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
	return &http.Client{Timeout: 60 * time.Second}
}
