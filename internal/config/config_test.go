package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/quizocr/internal/region"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEYS", "GEMINI_API_KEY", "QUIZOCR_MODELS", "QUIZOCR_LLM_PROVIDER", "OPENAI_API_KEY", "OLLAMA_MODEL", "QUIZOCR_QUIZ_DIR"} {
		t.Setenv(key, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "quizocr.yaml")
	content := `
regions:
  question: {x1: 0.1, y1: 0.1, x2: 0.5, y2: 0.5}
llm:
  models: [gemini-2.5-flash]
  throttle: 250ms
normalizer:
  min_line_length: 3
  fixes:
    - {from: "0hm", to: "Ohm"}
storage:
  quiz_dir: /tmp/quizzes
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Regions.Question != (region.Region{X1: 0.1, Y1: 0.1, X2: 0.5, Y2: 0.5}) {
		t.Errorf("Unexpected question region %+v", cfg.Regions.Question)
	}
	if cfg.Regions.Options != region.DefaultSet().Options {
		t.Errorf("Expected default options region to survive, got %+v", cfg.Regions.Options)
	}
	if cfg.LLM.Throttle.Std() != 250*time.Millisecond {
		t.Errorf("Expected 250ms throttle, got %v", cfg.LLM.Throttle.Std())
	}
	if !reflect.DeepEqual(cfg.LLM.Models, []string{"gemini-2.5-flash"}) {
		t.Errorf("Unexpected models %v", cfg.LLM.Models)
	}
	if cfg.LLM.Backoff.Std() != 2*time.Second {
		t.Errorf("Expected default backoff, got %v", cfg.LLM.Backoff.Std())
	}
	if cfg.Normalizer.MinLineLength != 3 || len(cfg.Normalizer.Fixes) != 1 {
		t.Errorf("Unexpected normalizer rules %+v", cfg.Normalizer)
	}
	if cfg.Storage.QuizDir != "/tmp/quizzes" || cfg.Storage.UploadDir != "uploads" {
		t.Errorf("Unexpected storage %+v", cfg.Storage)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{name: "inverted region", content: "regions:\n  options: {x1: 0.9, y1: 0.1, x2: 0.2, y2: 0.5}\n"},
		{name: "unknown provider", content: "llm:\n  provider: bard\n"},
		{name: "bad psm", content: "ocr:\n  options: {name: sparse, psm: 99, language: eng}\n"},
		{name: "no models", content: "llm:\n  models: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "quizocr.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadBadDuration(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "quizocr.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  throttle: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for unparseable duration")
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEYS", "key-a, key-b,,")
	t.Setenv("GEMINI_API_KEY", "ignored")
	t.Setenv("QUIZOCR_MODELS", "m1,m2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.LLM.APIKeys, []string{"key-a", "key-b"}) {
		t.Errorf("Unexpected keys %v", cfg.LLM.APIKeys)
	}
	if !reflect.DeepEqual(cfg.LLM.Models, []string{"m1", "m2"}) {
		t.Errorf("Unexpected models %v", cfg.LLM.Models)
	}
}

func TestApplyEnvSingleKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "solo")

	cfg := Default()
	cfg.ApplyEnv()
	if !reflect.DeepEqual(cfg.LLM.APIKeys, []string{"solo"}) {
		t.Errorf("Expected single key, got %v", cfg.LLM.APIKeys)
	}
}

func TestApplyEnvOllama(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUIZOCR_LLM_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL", "llama3.1")

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.LLM.Provider != "ollama" || !reflect.DeepEqual(cfg.LLM.Models, []string{"llama3.1"}) {
		t.Errorf("Unexpected llm config %+v", cfg.LLM)
	}
}
