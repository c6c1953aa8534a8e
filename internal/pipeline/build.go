package pipeline

import (
	"log/slog"

	"github.com/lehigh-university-libraries/quizocr/internal/config"
	"github.com/lehigh-university-libraries/quizocr/internal/llm"
	"github.com/lehigh-university-libraries/quizocr/internal/ocr"
	"github.com/lehigh-university-libraries/quizocr/internal/ocr/tesseract"
	"github.com/lehigh-university-libraries/quizocr/internal/ocr/vision"
)

// FromConfig builds a pipeline with the engines and providers named in cfg.
// Missing LLM credentials disable cleanup rather than failing.
func FromConfig(cfg config.Config) (*Pipeline, error) {
	var engine ocr.Engine
	switch cfg.OCR.Engine {
	case "vision":
		v, err := vision.New(cfg.OCR.VisionProvider, cfg.OCR.VisionModel)
		if err != nil {
			return nil, err
		}
		engine = v
	default:
		engine = tesseract.New()
	}
	recognizer := ocr.NewAdapter(engine, cfg.OCR.Timeout.Std())

	settings := Settings{
		Regions:        cfg.Regions,
		QuestionPreset: cfg.OCR.Question,
		OptionsPreset:  cfg.OCR.Options,
		Rules:          cfg.Normalizer,
		Exam:           cfg.Pipeline.Exam,
		SourceTag:      cfg.Pipeline.SourceTag,
		UseTextLayer:   cfg.Pipeline.UseTextLayer,
		MinTextLength:  cfg.Pipeline.MinTextLength,
		RenderDPI:      cfg.OCR.RenderDPI,
	}

	provider, err := llm.NewProvider(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	if llm.NeedsCredentials(cfg.LLM.Provider) && len(cfg.LLM.APIKeys) == 0 {
		slog.Warn("No LLM credentials configured, cleanup and document extraction disabled", "provider", cfg.LLM.Provider)
		return New(settings, recognizer, nil, nil), nil
	}

	// One throttle for both flows keeps every outbound call spaced.
	throttle := llm.NewThrottle(cfg.LLM.Throttle.Std())
	cleaner := llm.NewCleaner(provider, llm.NewRotation(llm.RotationConfig{
		Models:      cfg.LLM.Models,
		APIKeys:     cfg.LLM.APIKeys,
		MaxAttempts: cfg.LLM.MaxAttempts,
		Backoff:     cfg.LLM.Backoff.Std(),
		CallTimeout: cfg.LLM.CallTimeout.Std(),
	}), throttle, cfg.LLM.Temperature)
	extractor := llm.NewExtractor(provider, llm.NewRotation(llm.RotationConfig{
		Models:      cfg.LLM.Models,
		APIKeys:     cfg.LLM.APIKeys,
		MaxAttempts: 1,
		Backoff:     cfg.LLM.DocumentBackoff.Std(),
		CallTimeout: cfg.LLM.CallTimeout.Std(),
	}), throttle, cfg.LLM.Temperature)

	slog.Info("LLM configured",
		"provider", cfg.LLM.Provider,
		"models", cfg.LLM.Models,
		"keys", len(cfg.LLM.APIKeys))
	return New(settings, recognizer, cleaner, extractor), nil
}
