package evalcmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/quizocr/internal/config"
	"github.com/lehigh-university-libraries/quizocr/internal/eval/dataset"
	"github.com/lehigh-university-libraries/quizocr/internal/eval/metrics"
	"github.com/lehigh-university-libraries/quizocr/internal/eval/results"
	"github.com/lehigh-university-libraries/quizocr/internal/pipeline"
	"github.com/spf13/cobra"
)

// ConfigLoader returns the configuration the eval commands run with.
type ConfigLoader func() (config.Config, error)

// NewRunCmd creates the run command for scoring extraction against labeled rows
func NewRunCmd(loadConfig ConfigLoader) *cobra.Command {
	var datasetPath string
	var outputJSON string
	var outputDir string
	var sampleSize int
	var concurrency int
	var noLLM bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate slide extraction against a labeled question dataset",
		Long: `Run the OCR pipeline over every slide image in a dataset of labeled questions
and score the extracted question and options against the labels.

Datasets are Parquet or JSONL files of rows with id, image, question, options
and an optional correct_answer. Image paths are relative to the dataset file.`,
		Example: `  # Evaluate 10 rows
  quizocr eval run --dataset ./labels/rows.parquet --sample 10

  # Evaluate everything with four workers and no LLM cleanup
  quizocr eval run --dataset ./labels/rows.jsonl --sample -1 --concurrency 4 --no-llm`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", datasetPath)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cfg)
			if err != nil {
				return err
			}
			if noLLM {
				p.DisableCleanup()
			}

			loader := dataset.NewLoader(datasetPath)
			rows, err := loader.LoadSample(sampleSize)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}
			slog.Info("Dataset loaded", "rows", len(rows), "concurrency", concurrency)

			evalResults, err := NewRunner(p, concurrency).Run(cmd.Context(), rows, datasetPath)
			if err != nil {
				return err
			}

			agg := metrics.AggregateEvaluationResults(evalResults, cfg.OCR.Engine, modelLabel(cfg, p.CleanupEnabled()))
			agg.PrintSummary(cmd.OutOrStdout())

			if outputJSON != "" {
				if err := agg.SaveToJSON(outputJSON); err != nil {
					return err
				}
				slog.Info("Results written", "path", outputJSON)
			}

			path, err := results.SaveToYAML(outputDir, results.EvalConfig{
				Engine:      cfg.OCR.Engine,
				Provider:    cfg.LLM.Provider,
				Models:      cfg.LLM.Models,
				Cleanup:     p.CleanupEnabled(),
				DatasetPath: datasetPath,
				SampleSize:  len(rows),
			}, evalResults)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nEvaluation results saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to a Parquet or JSONL question dataset (required)")
	cmd.Flags().StringVar(&outputJSON, "output-json", "eval_results.json", "Path to output JSON results file (empty to skip)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "evals", "Directory for YAML run summaries")
	cmd.Flags().IntVar(&sampleSize, "sample", 10, "Number of rows to evaluate (-1 for all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Rows processed in parallel")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip LLM cleanup of drafted questions")

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func modelLabel(cfg config.Config, cleanup bool) string {
	if !cleanup || len(cfg.LLM.Models) == 0 {
		return "none"
	}
	return cfg.LLM.Models[0]
}
