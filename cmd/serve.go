package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/quizocr/internal/handlers"
	"github.com/lehigh-university-libraries/quizocr/internal/pipeline"
	"github.com/lehigh-university-libraries/quizocr/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz upload and listing server",
		Long: `Starts the HTTP API on the specified port.

POST /upload accepts a questions_file with an optional answers_file (sent whole
to the LLM) or a single file (slide image or PDF, run through OCR). Stored
quizzes are listed at /quizzes and served at /quizzes/{id}.`,
		Example: `  # Start server on default port 5000
  quizocr serve

  # Serve the quiz frontend as well
  quizocr serve --port 3000 --static ./public`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cfg)
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.Storage.QuizDir, cfg.Storage.UploadDir)
			if err != nil {
				return err
			}

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handlers.New(store, p, staticDir).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Quiz server available", "addr", addr, "url", "http://localhost"+addr, "quiz_dir", cfg.Storage.QuizDir)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "5000", "Port to listen on")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory of frontend files to serve at /")

	return cmd
}
