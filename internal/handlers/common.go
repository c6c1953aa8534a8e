package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lehigh-university-libraries/quizocr/internal/assemble"
	"github.com/lehigh-university-libraries/quizocr/internal/models"
	"github.com/lehigh-university-libraries/quizocr/internal/pipeline"
	"github.com/lehigh-university-libraries/quizocr/internal/storage"
	"github.com/rs/cors"
)

// maxUploadSize bounds a whole multipart upload.
const maxUploadSize = 64 << 20

// Extractor is the part of the pipeline the upload handler drives
type Extractor interface {
	ExtractBytes(ctx context.Context, name string, data []byte, meta assemble.Meta) (*models.QuizRecord, error)
	ExtractDocuments(ctx context.Context, questionsPDF, answersPDF []byte, meta assemble.Meta) (*pipeline.DocumentResult, error)
}

type Handler struct {
	store     *storage.FileStore
	extractor Extractor
	staticDir string
}

func New(store *storage.FileStore, extractor Extractor, staticDir string) *Handler {
	return &Handler{store: store, extractor: extractor, staticDir: staticDir}
}

// Router returns the HTTP API wrapped in a permissive CORS policy.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/upload", h.HandleUpload).Methods(http.MethodPost)
	r.HandleFunc("/quizzes", h.HandleQuizzes).Methods(http.MethodGet)
	r.HandleFunc("/quizzes/{id}", h.HandleQuizDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/health", h.HandleHealth).Methods(http.MethodGet)
	if h.staticDir != "" {
		r.PathPrefix("/").HandlerFunc(h.HandleStatic).Methods(http.MethodGet)
	}
	return cors.AllowAll().Handler(r)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}
