package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
	"github.com/lehigh-university-libraries/quizocr/internal/providers"
)

// QuestionDraft is one question as returned by the model, before ids and
// options are normalized.
type QuestionDraft struct {
	ID       models.QuestionRef `json:"id"`
	Question string             `json:"question"`
	Options  Options            `json:"options"`
}

// QuestionSet is the model response for a questions document
type QuestionSet struct {
	QuizTitle string          `json:"quiz_title"`
	Questions []QuestionDraft `json:"questions"`
}

// AnswerSet is the model response for an answer key document
type AnswerSet struct {
	Answers []models.Answer `json:"answers"`
}

// Extractor sends whole PDF documents to the hosted model and parses the
// JSON it returns.
type Extractor struct {
	provider    providers.Provider
	rotation    *Rotation
	throttle    *Throttle
	temperature float64
}

func NewExtractor(provider providers.Provider, rotation *Rotation, throttle *Throttle, temperature float64) *Extractor {
	return &Extractor{provider: provider, rotation: rotation, throttle: throttle, temperature: temperature}
}

// ExtractQuestions returns the parsed questions and the raw JSON response.
func (e *Extractor) ExtractQuestions(ctx context.Context, pdf []byte) (QuestionSet, json.RawMessage, error) {
	var set QuestionSet
	raw, err := e.extract(ctx, "questions extraction", questionsInstruction, pdf)
	if err != nil {
		return set, nil, err
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		return set, nil, fmt.Errorf("failed to parse questions response: %w", err)
	}
	if len(set.Questions) == 0 {
		return set, nil, fmt.Errorf("no questions found in document")
	}
	slog.Info("Extracted questions", "count", len(set.Questions), "title", set.QuizTitle)
	return set, raw, nil
}

// ExtractAnswers returns the parsed answer key and the raw JSON response.
// A bare JSON array of answers is accepted as well.
func (e *Extractor) ExtractAnswers(ctx context.Context, pdf []byte) (AnswerSet, json.RawMessage, error) {
	var set AnswerSet
	raw, err := e.extract(ctx, "answers extraction", answersInstruction, pdf)
	if err != nil {
		return set, nil, err
	}
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &set.Answers)
	} else {
		err = json.Unmarshal(raw, &set)
	}
	if err != nil {
		return set, nil, fmt.Errorf("failed to parse answers response: %w", err)
	}
	slog.Info("Extracted answers", "count", len(set.Answers))
	return set, raw, nil
}

func (e *Extractor) extract(ctx context.Context, task, instruction string, pdf []byte) (json.RawMessage, error) {
	if e == nil || e.provider == nil || e.rotation == nil {
		return nil, ErrNoCredentials
	}
	if err := e.throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle: %w", err)
	}

	response, err := e.rotation.Do(ctx, task, func(ctx context.Context, model, apiKey string) (string, error) {
		return e.provider.ExtractText(ctx, providers.Config{
			Model:       model,
			APIKey:      apiKey,
			Temperature: e.temperature,
			Prompt:      instruction,
			Documents:   []providers.Document{{MIMEType: "application/pdf", Data: pdf}},
			JSON:        true,
		})
	})
	if err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace([]byte(StripCodeFences(response)))
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s: model returned invalid JSON", task)
	}
	return raw, nil
}
