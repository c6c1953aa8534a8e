package evalcmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/quizocr/internal/eval/dataset"
	"github.com/lehigh-university-libraries/quizocr/internal/eval/metrics"
	"github.com/lehigh-university-libraries/quizocr/internal/models"
	"golang.org/x/sync/errgroup"
)

// SlideExtractor reads one question from a slide image
type SlideExtractor interface {
	ExtractSlide(ctx context.Context, path string, number int) (models.SlideRecord, error)
}

// Runner evaluates dataset rows against a shared pipeline
type Runner struct {
	extractor   SlideExtractor
	concurrency int
}

func NewRunner(extractor SlideExtractor, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{extractor: extractor, concurrency: concurrency}
}

// Run evaluates rows and returns one result per row, in row order. A row
// that fails is recorded with its error; only cancellation stops the run.
func (r *Runner) Run(ctx context.Context, rows []dataset.Row, datasetPath string) ([]metrics.EvaluationResult, error) {
	results := make([]metrics.EvaluationResult, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slog.Info("Processing item", "id", row.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(rows)))
			results[i] = r.evaluateRow(gctx, row, datasetPath)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) evaluateRow(ctx context.Context, row dataset.Row, datasetPath string) metrics.EvaluationResult {
	result := metrics.EvaluationResult{
		ID:       row.ID,
		Image:    row.ImagePath(datasetPath),
		Expected: row.Expected(),
	}
	if result.Image == "" {
		result.Error = "no image available for row"
		return result
	}

	start := time.Now()
	slide, err := r.extractor.ExtractSlide(ctx, result.Image, 1)
	result.ProcessingTime = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("failed to extract slide: %v", err)
		slog.Warn("Row failed", "id", row.ID, "err", err)
		return result
	}

	result.Actual = models.Question{
		ID:       slide.QuestionNumber,
		Question: slide.Question,
		Options:  slide.Options,
	}
	result.Confidence = slide.Confidence
	result.Comparison = metrics.CompareQuestion(result.Expected, result.Actual)
	return result
}
