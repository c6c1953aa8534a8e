package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
	"github.com/lehigh-university-libraries/quizocr/internal/providers"
)

// Cleaner asks a hosted model to fix OCR and grammar errors in a drafted
// question. It never fails: on any problem the input comes back unchanged.
type Cleaner struct {
	provider    providers.Provider
	rotation    *Rotation
	throttle    *Throttle
	temperature float64
}

// NewCleaner returns a cleaner. A nil provider or rotation yields a cleaner
// that returns its input unchanged.
func NewCleaner(provider providers.Provider, rotation *Rotation, throttle *Throttle, temperature float64) *Cleaner {
	return &Cleaner{provider: provider, rotation: rotation, throttle: throttle, temperature: temperature}
}

type cleanupPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type cleanupResult struct {
	Question string  `json:"question"`
	Options  Options `json:"options"`
}

// Clean returns the corrected question and options. The option count and
// order always match the input.
func (c *Cleaner) Clean(ctx context.Context, question string, options []string) (string, []string) {
	if c == nil || c.provider == nil || c.rotation == nil {
		return question, options
	}

	corrected, err := c.clean(ctx, question, options)
	if err != nil {
		slog.Warn("LLM cleanup failed, keeping OCR text", "err", err)
		return question, options
	}
	return corrected.Question, corrected.Options
}

func (c *Cleaner) clean(ctx context.Context, question string, options []string) (cleanupPayload, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return cleanupPayload{}, fmt.Errorf("throttle: %w", err)
	}

	input, err := json.MarshalIndent(cleanupPayload{Question: question, Options: options}, "", "  ")
	if err != nil {
		return cleanupPayload{}, fmt.Errorf("failed to marshal cleanup input: %w", err)
	}

	response, err := c.rotation.Do(ctx, "cleanup", func(ctx context.Context, model, apiKey string) (string, error) {
		return c.provider.ExtractText(ctx, providers.Config{
			Model:       model,
			APIKey:      apiKey,
			Temperature: c.temperature,
			System:      cleanupInstruction,
			Prompt:      "INPUT:\n" + string(input),
			JSON:        true,
		})
	})
	if err != nil {
		return cleanupPayload{}, err
	}

	var result cleanupResult
	if err := json.Unmarshal([]byte(StripCodeFences(response)), &result); err != nil {
		return cleanupPayload{}, fmt.Errorf("failed to parse cleanup response: %w", err)
	}
	if len(result.Options) != len(options) {
		return cleanupPayload{}, fmt.Errorf("cleanup returned %d options, expected %d", len(result.Options), len(options))
	}

	out := cleanupPayload{Question: strings.TrimSpace(result.Question), Options: make([]string, len(options))}
	if out.Question == "" {
		out.Question = question
	}
	for i, text := range result.Options.Texts() {
		text = strings.TrimSpace(text)
		// Unreadable options stay unreadable and empty corrections are ignored.
		if options[i] == models.Sentinel || text == "" {
			text = options[i]
		}
		out.Options[i] = text
	}
	slog.Debug("LLM cleanup applied", "question_changed", out.Question != question)
	return out, nil
}
