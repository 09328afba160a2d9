package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req recognizeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MediaType != "application/pdf" {
			t.Errorf("expected pdf media type, got %s", req.MediaType)
		}
		if _, err := base64.StdEncoding.DecodeString(req.Content); err != nil {
			t.Errorf("content is not valid base64: %v", err)
		}
		json.NewEncoder(w).Encode(recognizeResponse{
			Text:  "Discharge Summary\nPatient: John Doe",
			Pages: []Page{{Number: 1, Text: "Discharge Summary\nPatient: John Doe"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.Recognize(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text == "" || len(res.Pages) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRecognize_EmptyDocument(t *testing.T) {
	c := NewClient("http://ocr.test")
	if _, err := c.Recognize(context.Background(), nil, "image/png"); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestRecognize_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(recognizeResponse{Error: "unreadable image"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Recognize(context.Background(), []byte{0x1}, "image/png"); err == nil {
		t.Error("expected error from backend error payload")
	}
}
