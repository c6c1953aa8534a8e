package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/quizocr/internal/providers"
)

func TestExtractText(t *testing.T) {
	var got struct {
		Model          string                   `json:"model"`
		Messages       []map[string]interface{} `json:"messages"`
		ResponseFormat map[string]string        `json:"response_format"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()
	t.Setenv("OPENAI_URL", server.URL)

	text, err := New().ExtractText(context.Background(), providers.Config{
		Model:     "gpt-4o",
		APIKey:    "sk-test",
		System:    "system",
		Prompt:    "prompt",
		Documents: []providers.Document{{MIMEType: "application/pdf", Data: []byte("%PDF")}},
		JSON:      true,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "ok" {
		t.Errorf("Expected ok, got %q", text)
	}
	if len(got.Messages) != 2 || got.Messages[0]["role"] != "system" {
		t.Errorf("Expected system and user messages, got %+v", got.Messages)
	}
	if got.ResponseFormat["type"] != "json_object" {
		t.Errorf("Expected json_object response format, got %v", got.ResponseFormat)
	}
}

func TestExtractTextErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()
	t.Setenv("OPENAI_URL", server.URL)

	_, err := New().ExtractText(context.Background(), providers.Config{Model: "gpt-4o", APIKey: "sk-test"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected 429 error, got %v", err)
	}
}
