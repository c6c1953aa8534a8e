package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/quizocr/internal/ocr"
	"github.com/lehigh-university-libraries/quizocr/internal/ollama"
	"github.com/lehigh-university-libraries/quizocr/internal/openai"
	"github.com/lehigh-university-libraries/quizocr/internal/providers"
)

// Engine implements ocr.Engine by asking a vision-capable LLM to transcribe
// the region. It ignores page segmentation modes but uses the preset name to
// tailor the prompt.
type Engine struct {
	name     string
	model    string
	provider providers.Provider
}

// New creates a vision engine for provider ("ollama" or "openai").
func New(provider, model string) (*Engine, error) {
	if provider == "" {
		provider = "ollama"
	}
	var p providers.Provider
	switch provider {
	case "ollama":
		p = ollama.New()
	case "openai":
		p = openai.New()
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", provider)
	}
	return NewWithProvider(provider, model, p), nil
}

// NewWithProvider creates a vision engine that sends requests through p.
func NewWithProvider(name, model string, p providers.Provider) *Engine {
	if model == "" {
		model = defaultModel(name)
	}
	return &Engine{name: name, model: model, provider: p}
}

func (e *Engine) Name() string { return "vision-" + e.name }

// Recognize transcribes the text in the image.
func (e *Engine) Recognize(ctx context.Context, png []byte, preset ocr.Preset) (string, error) {
	text, err := e.provider.ExtractText(ctx, providers.Config{
		Model:       e.model,
		Temperature: 0.0, // exact transcription
		Prompt:      buildOCRPrompt(preset),
		Documents:   []providers.Document{{MIMEType: "image/png", Data: png}},
	})
	if err != nil {
		return "", fmt.Errorf("%s OCR: %w", e.name, err)
	}

	slog.Debug("Extracted OCR text", "provider", e.name, "model", e.model, "length", len(text))
	return text, nil
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-4o"
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return "mistral-small3.2:24b"
		}
		return model
	default:
		return ""
	}
}

func buildOCRPrompt(preset ocr.Preset) string {
	layout := "a block of question text"
	if preset.PageSegMode == ocr.PSMSparseText {
		layout = "a numbered list of multiple-choice answer options"
	}
	return fmt.Sprintf(`You are performing OCR (Optical Character Recognition) on a cropped region of an exam slide.
The region contains %s.

Transcribe ALL visible text exactly as it appears, preserving:
- Line breaks
- Option numbering such as "1." or "2)"
- Capitalization, punctuation and numeric values

Do not add interpretation, commentary or explanations. Do not answer the question.
Provide ONLY the extracted text.`, layout)
}
