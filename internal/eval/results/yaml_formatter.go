package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/quizocr/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Engine      string   `yaml:"engine"`
	Provider    string   `yaml:"provider"`
	Models      []string `yaml:"models"`
	Cleanup     bool     `yaml:"cleanup"`
	DatasetPath string   `yaml:"datasetpath"`
	SampleSize  int      `yaml:"samplesize"`
	Timestamp   string   `yaml:"timestamp"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier       string    `yaml:"identifier"`
	ExpectedQuestion string    `yaml:"expectedquestion"`
	ActualQuestion   string    `yaml:"actualquestion"`
	ActualOptions    []string  `yaml:"actualoptions"`
	Confidence       string    `yaml:"confidence"`
	OverallScore     float64   `yaml:"overallscore"`
	LevenshteinTotal int       `yaml:"levenshteintotal"`
	QuestionScore    float64   `yaml:"questionscore"`
	OptionScores     []float64 `yaml:"optionscores"`
}

// EvalSpec represents the complete evaluation specification
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Results []EvalResult `yaml:"results"`
}

// SaveToYAML writes a run to <dir>/<model>-<timestamp>.yaml and returns the
// absolute path. Failed rows are left out.
func SaveToYAML(dir string, config EvalConfig, results []metrics.EvaluationResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	if config.Timestamp == "" {
		config.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	spec := EvalSpec{
		Config:  config,
		Results: make([]EvalResult, 0, len(results)),
	}

	for _, r := range results {
		if r.Error != "" {
			continue
		}

		evalResult := EvalResult{
			Identifier:       r.ID,
			ExpectedQuestion: r.Expected.Question,
			ActualQuestion:   r.Actual.Question,
			ActualOptions:    r.Actual.OptionTexts(),
			Confidence:       string(r.Confidence),
		}
		if c := r.Comparison; c != nil {
			evalResult.OverallScore = c.OverallScore
			evalResult.LevenshteinTotal = c.DistanceTotal
			evalResult.QuestionScore = c.Question.Score
			for _, opt := range c.Options {
				evalResult.OptionScores = append(evalResult.OptionScores, opt.Score)
			}
		}
		spec.Results = append(spec.Results, evalResult)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", fileLabel(config), config.Timestamp))

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filepath.Abs(filename)
}

func fileLabel(config EvalConfig) string {
	label := config.Engine
	if config.Cleanup && len(config.Models) > 0 {
		label += "-" + config.Models[0]
	}
	if label == "" {
		label = "eval"
	}
	return strings.NewReplacer("/", "_", ":", "_").Replace(label)
}
