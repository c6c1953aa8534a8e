package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/quizocr/internal/eval/dataset"
	"github.com/lehigh-university-libraries/quizocr/internal/storage"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var quizDir string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored quiz questions to Parquet",
		Long: `Flatten every stored quiz into one row per question and write the rows to a
Parquet file. The rows use the same schema eval run reads, so an export can be
labeled with image paths and reused as an evaluation dataset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if quizDir == "" {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				quizDir = cfg.Storage.QuizDir
			}
			rows, err := exportRows(quizDir)
			if err != nil {
				return err
			}
			if err := dataset.WriteParquet(output, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d questions to %s\n", len(rows), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&quizDir, "quiz-dir", "", "Quiz store directory (defaults to storage.quiz_dir)")
	cmd.Flags().StringVarP(&output, "output", "o", "questions.parquet", "Parquet file to write")

	return cmd
}

func exportRows(quizDir string) ([]dataset.Row, error) {
	// Uploads are not read; an empty upload dir keeps New from creating one.
	store, err := storage.New(quizDir, "")
	if err != nil {
		return nil, err
	}
	summaries, err := store.List()
	if err != nil {
		return nil, err
	}

	var rows []dataset.Row
	for _, s := range summaries {
		record, err := store.Get(s.ID)
		if err != nil {
			slog.Warn("Skipping quiz", "id", s.ID, "err", err)
			continue
		}
		rows = append(rows, dataset.RowsFromRecord(record)...)
	}
	return rows, nil
}
