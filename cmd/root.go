package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/quizocr/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	return config.Load(o.configPath)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quizocr",
		Short: "Quiz question extraction from slide captures and PDFs",
		Long: `quizocr reconstructs multiple-choice questions from exam-prep slide captures
and quiz PDFs.

Slides are cropped into question and option regions, read with OCR, normalized,
structured into four keyed options and optionally corrected by an LLM. Question
and answer PDFs can also be sent whole to the LLM and merged by question id.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newExtractCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newEvalCmd(opts))

	return cmd
}
