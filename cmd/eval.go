package cmd

import (
	"github.com/lehigh-university-libraries/quizocr/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Extraction accuracy evaluation tools",
		Long: `Evaluation tools for measuring how well the pipeline reconstructs labeled
questions from slide images.`,
	}

	cmd.AddCommand(evalcmd.NewRunCmd(opts.loadConfig))

	return cmd
}
