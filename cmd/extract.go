package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/quizocr/internal/assemble"
	"github.com/lehigh-university-libraries/quizocr/internal/pipeline"
	"github.com/lehigh-university-libraries/quizocr/internal/storage"
	"github.com/spf13/cobra"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var output string
	var format string
	var title string
	var exam string
	var number int
	var noLLM bool
	var save bool
	var document bool
	var answers string

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract quiz questions from a slide image or PDF",
		Long: `Extract questions from a slide image or PDF and print the result as JSON.

The record format holds one question per image or PDF page. The slide format
reads a single slide and emits the per-slide artifact. With --document the file
is a questions PDF sent whole to the LLM, optionally with an --answers PDF.`,
		Example: `  # One slide, per-slide artifact
  quizocr extract slide_07.png --format slide --number 7

  # A deck of slides exported as PDF, saved to the quiz store
  quizocr extract week3.pdf --title "Week 3" --save

  # Questions and answers PDFs through the LLM
  quizocr extract questions.pdf --document --answers answers.pdf -o quiz.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if format != "record" && format != "slide" {
				return fmt.Errorf("unknown format %q (expected record or slide)", format)
			}
			if answers != "" {
				document = true
			}
			if document && format == "slide" {
				return fmt.Errorf("--document produces records only")
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if exam != "" {
				cfg.Pipeline.Exam = exam
			}
			p, err := pipeline.FromConfig(cfg)
			if err != nil {
				return err
			}
			if noLLM {
				p.DisableCleanup()
			}

			ctx := cmd.Context()
			var result any
			switch {
			case format == "slide":
				slide, err := p.ExtractSlide(ctx, path, number)
				if err != nil {
					return err
				}
				result = slide
			case document:
				questionsPDF, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				var answersPDF []byte
				if answers != "" {
					if answersPDF, err = os.ReadFile(answers); err != nil {
						return fmt.Errorf("failed to read %s: %w", answers, err)
					}
				}
				docs, err := p.ExtractDocuments(ctx, questionsPDF, answersPDF, assemble.Meta{Title: title, SourceFilename: path})
				if err != nil {
					return err
				}
				if save {
					if err := saveDocuments(cfg.Storage.QuizDir, cfg.Storage.UploadDir, docs); err != nil {
						return err
					}
				}
				result = docs.Record
			default:
				record, err := p.ExtractFile(ctx, path, assemble.Meta{Title: title})
				if err != nil {
					return err
				}
				if save {
					store, err := storage.New(cfg.Storage.QuizDir, cfg.Storage.UploadDir)
					if err != nil {
						return err
					}
					if err := store.Save(record); err != nil {
						return err
					}
					slog.Info("Quiz saved", "id", record.ID, "dir", cfg.Storage.QuizDir)
				}
				result = record
			}

			return writeOutput(cmd.OutOrStdout(), output, result)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write JSON to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "record", "Output format: record or slide")
	cmd.Flags().StringVar(&title, "title", "", "Quiz title (defaults to the extracted or generic title)")
	cmd.Flags().StringVar(&exam, "exam", "", "Exam name for slide artifacts")
	cmd.Flags().IntVar(&number, "number", 1, "Question number for slide artifacts")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip LLM cleanup of drafted questions")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the record to the quiz store")
	cmd.Flags().BoolVar(&document, "document", false, "Send the file whole to the LLM as a questions PDF")
	cmd.Flags().StringVar(&answers, "answers", "", "Answers PDF merged by question id (implies --document)")

	return cmd
}

func saveDocuments(quizDir, uploadDir string, docs *pipeline.DocumentResult) error {
	store, err := storage.New(quizDir, uploadDir)
	if err != nil {
		return err
	}
	raw := map[string]json.RawMessage{"questions": docs.QuestionsRaw, "answers": docs.AnswersRaw}
	if err := store.SaveDocument(docs.Record, raw); err != nil {
		return err
	}
	slog.Info("Quiz saved", "id", docs.Record.ID, "dir", quizDir)
	return nil
}

// writeOutput writes v as 2-space indented JSON to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Info("Output written", "path", path)
	return nil
}
