package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
)

// EvaluationResult is the outcome for a single dataset row
type EvaluationResult struct {
	ID             string              `json:"id"`
	Image          string              `json:"image"`
	Expected       models.Question     `json:"expected"`
	Actual         models.Question     `json:"actual"`
	Confidence     models.Confidence   `json:"confidence,omitempty"`
	Comparison     *QuestionComparison `json:"comparison,omitempty"`
	ProcessingTime time.Duration       `json:"processing_time"`
	Error          string              `json:"error,omitempty"`
}

// AggregateResults holds evaluation metrics across a run
type AggregateResults struct {
	TotalRecords int `json:"total_records"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`

	QuestionAccuracy FieldStats `json:"question_accuracy"`
	OptionAccuracy   FieldStats `json:"option_accuracy"`

	HighConfidence int `json:"high_confidence"`
	AnswersChecked int `json:"answers_checked"`
	AnswersCorrect int `json:"answers_correct"`

	OverallAccuracy float64 `json:"overall_accuracy"`
	MedianScore     float64 `json:"median_score"`

	AverageProcessingTime time.Duration `json:"average_processing_time"`
	TotalProcessingTime   time.Duration `json:"total_processing_time"`

	Results []EvaluationResult `json:"results"`

	EvaluationDate time.Time `json:"evaluation_date"`
	Engine         string    `json:"engine"`
	Model          string    `json:"model"`
	SampleSize     int       `json:"sample_size"`
}

// FieldStats counts match methods and scores for one kind of text
type FieldStats struct {
	ExactMatches  int       `json:"exact_matches"`
	FuzzyMatches  int       `json:"fuzzy_matches"`
	NoMatches     int       `json:"no_matches"`
	MissingFields int       `json:"missing_fields"`
	AverageScore  float64   `json:"average_score"`
	Scores        []float64 `json:"-"`
}

// AggregateEvaluationResults aggregates multiple evaluation results
func AggregateEvaluationResults(results []EvaluationResult, engine, model string) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:     len(results),
		Results:          results,
		EvaluationDate:   time.Now(),
		Engine:           engine,
		Model:            model,
		SampleSize:       len(results),
		QuestionAccuracy: FieldStats{Scores: []float64{}},
		OptionAccuracy:   FieldStats{Scores: []float64{}},
	}

	var overall []float64
	var successDuration time.Duration

	for _, result := range results {
		agg.TotalProcessingTime += result.ProcessingTime

		if result.Error != "" {
			agg.FailureCount++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime
		if result.Confidence == models.ConfidenceHigh {
			agg.HighConfidence++
		}

		c := result.Comparison
		if c == nil {
			continue
		}
		aggregateFieldStats(&agg.QuestionAccuracy, c.Question)
		for _, opt := range c.Options {
			aggregateFieldStats(&agg.OptionAccuracy, opt)
		}
		if c.AnswerChecked {
			agg.AnswersChecked++
			if c.AnswerCorrect {
				agg.AnswersCorrect++
			}
		}
		overall = append(overall, c.OverallScore)
	}

	agg.QuestionAccuracy.AverageScore = calculateAverage(agg.QuestionAccuracy.Scores)
	agg.OptionAccuracy.AverageScore = calculateAverage(agg.OptionAccuracy.Scores)
	agg.OverallAccuracy = calculateAverage(overall)
	agg.MedianScore = calculateMedian(overall)
	if agg.SuccessCount > 0 {
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}

	return agg
}

func aggregateFieldStats(stats *FieldStats, match FieldMatch) {
	stats.Scores = append(stats.Scores, match.Score)

	switch match.Method {
	case MethodExact:
		stats.ExactMatches++
	case MethodFuzzyHigh, MethodFuzzyMedium, MethodSubstring:
		stats.FuzzyMatches++
	case MethodNoMatch:
		stats.NoMatches++
	case MethodActualMissing, MethodExpectedMissing, MethodBothMissing:
		stats.MissingFields++
	}
}

func calculateAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range scores {
		sum += score
	}
	return sum / float64(len(scores))
}

func calculateMedian(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// PrintSummary writes a human-readable summary of the evaluation to w.
func (a *AggregateResults) PrintSummary(w io.Writer) {
	line := strings.Repeat("=", 70)
	dash := strings.Repeat("-", 70)

	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintln(w, "QUIZ OCR EVALUATION SUMMARY")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Engine: %s\n", a.Engine)
	fmt.Fprintf(w, "Model: %s\n", a.Model)
	fmt.Fprintf(w, "Sample Size: %d rows\n", a.SampleSize)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, dash)
	fmt.Fprintf(w, "Total Rows: %d\n", a.TotalRecords)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, percent(a.SuccessCount, a.TotalRecords))
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, percent(a.FailureCount, a.TotalRecords))
	fmt.Fprintf(w, "High Confidence: %d (%.1f%%)\n", a.HighConfidence, percent(a.HighConfidence, a.SuccessCount))
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TEXT ACCURACY")
	fmt.Fprintln(w, dash)
	printFieldStats(w, "Question", a.QuestionAccuracy)
	printFieldStats(w, "Options", a.OptionAccuracy)
	if a.AnswersChecked > 0 {
		fmt.Fprintf(w, "\nAnswers: %d/%d correct\n", a.AnswersCorrect, a.AnswersChecked)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OVERALL SCORE")
	fmt.Fprintln(w, dash)
	fmt.Fprintf(w, "Overall Accuracy: %.2f%% (%.3f)\n", a.OverallAccuracy*100, a.OverallAccuracy)
	fmt.Fprintf(w, "Median Score: %.2f%%\n", a.MedianScore*100)
	fmt.Fprintln(w, line)
}

func printFieldStats(w io.Writer, fieldName string, stats FieldStats) {
	fmt.Fprintf(w, "\n%s:\n", fieldName)
	fmt.Fprintf(w, "  Average Score: %.2f%% (%.3f)\n", stats.AverageScore*100, stats.AverageScore)
	fmt.Fprintf(w, "  Exact Matches: %d\n", stats.ExactMatches)
	fmt.Fprintf(w, "  Fuzzy Matches: %d\n", stats.FuzzyMatches)
	fmt.Fprintf(w, "  No Matches: %d\n", stats.NoMatches)
	fmt.Fprintf(w, "  Missing Fields: %d\n", stats.MissingFields)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// SaveToJSON saves the aggregate results to a JSON file
func (a *AggregateResults) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}
