package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/quizocr/internal/ocr"
	"github.com/lehigh-university-libraries/quizocr/internal/providers"
)

type stubProvider struct {
	got  providers.Config
	text string
	err  error
}

func (s *stubProvider) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	s.got = config
	return s.text, s.err
}

func TestRecognizeSendsImageDocument(t *testing.T) {
	stub := &stubProvider{text: "What is a shim?"}
	engine := NewWithProvider("openai", "gpt-4o-mini", stub)

	text, err := engine.Recognize(context.Background(), []byte("png"), ocr.ColumnPreset())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "What is a shim?" {
		t.Errorf("Unexpected text %q", text)
	}
	if stub.got.Model != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %q", stub.got.Model)
	}
	if len(stub.got.Documents) != 1 || stub.got.Documents[0].MIMEType != "image/png" || string(stub.got.Documents[0].Data) != "png" {
		t.Errorf("Expected one image/png document, got %+v", stub.got.Documents)
	}
	if !strings.Contains(stub.got.Prompt, "question text") {
		t.Errorf("Expected question prompt, got %q", stub.got.Prompt)
	}
	if engine.Name() != "vision-openai" {
		t.Errorf("Expected vision-openai, got %q", engine.Name())
	}
}

func TestRecognizeWrapsProviderErrors(t *testing.T) {
	stub := &stubProvider{err: errors.New("boom")}
	_, err := NewWithProvider("openai", "m", stub).Recognize(context.Background(), nil, ocr.ColumnPreset())
	if err == nil || !strings.Contains(err.Error(), "openai OCR") {
		t.Errorf("Expected wrapped provider error, got %v", err)
	}
}

func TestRecognizeWithOllama(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected /api/generate, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response": "1. Steel\n2. Brass"}`))
	}))
	defer server.Close()
	t.Setenv("OLLAMA_URL", server.URL)

	engine, err := New("ollama", "llava")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text, err := engine.Recognize(context.Background(), []byte("png"), ocr.SparsePreset())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "1. Steel\n2. Brass" {
		t.Errorf("Unexpected text %q", text)
	}
	if got["model"] != "llava" {
		t.Errorf("Expected model llava, got %v", got["model"])
	}
	if prompt, _ := got["prompt"].(string); !strings.Contains(prompt, "answer options") {
		t.Errorf("Expected options prompt, got %q", prompt)
	}
	if images, _ := got["images"].([]interface{}); len(images) != 1 {
		t.Errorf("Expected one image, got %v", got["images"])
	}
}

func TestRecognizeSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	t.Setenv("OLLAMA_URL", server.URL)

	engine, err := New("ollama", "llava")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := engine.Recognize(context.Background(), []byte("png"), ocr.ColumnPreset()); err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Expected 503 error, got %v", err)
	}
}

func TestDefaultModel(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "")
	t.Setenv("OPENAI_MODEL", "")
	tests := map[string]string{
		"ollama": "mistral-small3.2:24b",
		"openai": "gpt-4o",
	}
	for name, want := range tests {
		engine, err := New(name, "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if engine.model != want {
			t.Errorf("Expected default model %s for %s, got %s", want, name, engine.model)
		}
	}
}

func TestUnsupportedProvider(t *testing.T) {
	if _, err := New("bogus", "m"); err == nil {
		t.Error("Expected error for unsupported provider")
	}
}
