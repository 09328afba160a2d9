package llm

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func TestChatSuccess(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				body, _ := io.ReadAll(req.Body)
				if !strings.Contains(string(body), "gpt-test") {
					t.Fatalf("expected model in payload")
				}
				return &http.Response{
					StatusCode: 200,
					Body: io.NopCloser(strings.NewReader(`{
						"choices":[{"message":{"role":"assistant","content":"Summary"}}]
					}`)),
					Header: make(http.Header),
				}
			}),
		},
	}

	out, err := client.Chat(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "Summary" {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestChatBackendError(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return &http.Response{
					StatusCode: 200,
					Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"rate limited"}}`)),
					Header:     make(http.Header),
				}
			}),
		},
	}

	if _, err := client.Chat(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error from backend error payload")
	}
}

func TestChatRequiresConfig(t *testing.T) {
	client := &Client{}
	if _, err := client.Chat(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
	if client.Available() {
		t.Error("expected Available to be false for unconfigured client")
	}
}
