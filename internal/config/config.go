// Package config loads quizocr settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/quizocr/internal/normalize"
	"github.com/lehigh-university-libraries/quizocr/internal/ocr"
	"github.com/lehigh-university-libraries/quizocr/internal/region"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full application configuration
type Config struct {
	Regions    region.Set      `yaml:"regions"`
	OCR        OCRConfig       `yaml:"ocr"`
	Normalizer normalize.Rules `yaml:"normalizer"`
	LLM        LLMConfig       `yaml:"llm"`
	Storage    StorageConfig   `yaml:"storage"`
	Pipeline   PipelineConfig  `yaml:"pipeline"`
}

// OCRConfig selects the recognition engine and its presets
type OCRConfig struct {
	// Engine is "tesseract" or "vision".
	Engine         string     `yaml:"engine"`
	VisionProvider string     `yaml:"vision_provider"`
	VisionModel    string     `yaml:"vision_model"`
	Timeout        Duration   `yaml:"timeout"`
	Question       ocr.Preset `yaml:"question"`
	Options        ocr.Preset `yaml:"options"`
	// RenderDPI is the resolution PDF pages are rasterized at.
	RenderDPI int `yaml:"render_dpi"`
}

// LLMConfig configures the hosted language model
type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Models      []string `yaml:"models"`
	APIKeys     []string `yaml:"api_keys"`
	Temperature float64  `yaml:"temperature"`
	Throttle    Duration `yaml:"throttle"`
	MaxAttempts int      `yaml:"max_attempts"`
	Backoff     Duration `yaml:"backoff"`
	CallTimeout Duration `yaml:"call_timeout"`
	// DocumentBackoff is the pause between credential switches in the
	// whole-document flow.
	DocumentBackoff Duration `yaml:"document_backoff"`
}

// StorageConfig locates persisted artifacts
type StorageConfig struct {
	QuizDir   string `yaml:"quiz_dir"`
	UploadDir string `yaml:"upload_dir"`
}

// PipelineConfig labels produced artifacts
type PipelineConfig struct {
	Exam          string `yaml:"exam"`
	SourceTag     string `yaml:"source_tag"`
	UseTextLayer  bool   `yaml:"use_text_layer"`
	MinTextLength int    `yaml:"min_text_length"`
}

// Duration is a time.Duration written as a string such as "5s" in YAML
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Regions: region.DefaultSet(),
		OCR: OCRConfig{
			Engine:    "tesseract",
			Timeout:   Duration(60 * time.Second),
			Question:  ocr.ColumnPreset(),
			Options:   ocr.SparsePreset(),
			RenderDPI: 300,
		},
		Normalizer: normalize.DefaultRules(),
		LLM: LLMConfig{
			Provider:        "gemini",
			Models:          []string{"gemini-2.0-flash", "gemma-3-27b", "gemma-3-12b"},
			Temperature:     0,
			Throttle:        Duration(5 * time.Second),
			MaxAttempts:     3,
			Backoff:         Duration(2 * time.Second),
			CallTimeout:     Duration(60 * time.Second),
			DocumentBackoff: Duration(time.Second),
		},
		Storage: StorageConfig{
			QuizDir:   "public/quizzes",
			UploadDir: "uploads",
		},
		Pipeline: PipelineConfig{
			Exam:          "Canada Millwright",
			SourceTag:     "ocr_gemini_batched_v3",
			UseTextLayer:  true,
			MinTextLength: 20,
		},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() {
	if keys := splitList(os.Getenv("GEMINI_API_KEYS")); len(keys) > 0 {
		c.LLM.APIKeys = keys
	} else if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" && len(c.LLM.APIKeys) == 0 {
		c.LLM.APIKeys = []string{key}
	}
	if models := splitList(os.Getenv("QUIZOCR_MODELS")); len(models) > 0 {
		c.LLM.Models = models
	}
	if provider := os.Getenv("QUIZOCR_LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if c.LLM.Provider == "openai" && len(c.LLM.APIKeys) == 0 {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.LLM.APIKeys = []string{key}
		}
	}
	if c.LLM.Provider == "ollama" {
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			c.LLM.Models = []string{model}
		}
	}
	if dir := os.Getenv("QUIZOCR_QUIZ_DIR"); dir != "" {
		c.Storage.QuizDir = dir
	}
}

// Validate checks the configuration and wraps failures in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if err := c.Regions.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.OCR.Question.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.OCR.Options.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.OCR.Engine {
	case "tesseract", "vision":
	default:
		errs = append(errs, fmt.Errorf("unknown OCR engine %q", c.OCR.Engine))
	}
	if c.OCR.RenderDPI <= 0 {
		errs = append(errs, fmt.Errorf("render_dpi must be positive"))
	}
	switch c.LLM.Provider {
	case "gemini", "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM provider %q", c.LLM.Provider))
	}
	if len(c.LLM.Models) == 0 {
		errs = append(errs, fmt.Errorf("at least one LLM model is required"))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("llm.max_attempts must be at least 1"))
	}
	for name, d := range map[string]Duration{
		"ocr.timeout":          c.OCR.Timeout,
		"llm.throttle":         c.LLM.Throttle,
		"llm.backoff":          c.LLM.Backoff,
		"llm.call_timeout":     c.LLM.CallTimeout,
		"llm.document_backoff": c.LLM.DocumentBackoff,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Normalizer.MinLineLength < 0 {
		errs = append(errs, fmt.Errorf("normalizer.min_line_length must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
