package llm

import (
	"fmt"

	"github.com/lehigh-university-libraries/quizocr/internal/gemini"
	"github.com/lehigh-university-libraries/quizocr/internal/ollama"
	"github.com/lehigh-university-libraries/quizocr/internal/openai"
	"github.com/lehigh-university-libraries/quizocr/internal/providers"
)

// NewProvider returns the provider registered under name.
func NewProvider(name string) (providers.Provider, error) {
	switch name {
	case "", "gemini":
		return gemini.New(), nil
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", name)
	}
}

// NeedsCredentials reports whether the named provider requires API keys.
// Ollama runs locally without them.
func NeedsCredentials(name string) bool {
	return name != "ollama"
}
