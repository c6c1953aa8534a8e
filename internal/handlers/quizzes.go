package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lehigh-university-libraries/quizocr/internal/storage"
)

func (h *Handler) HandleQuizzes(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List()
	if err != nil {
		h.writeError(w, "Failed to list quizzes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, summaries)
}

// HandleQuizDetail serves the stored file as-is so legacy question lists
// keep working.
func (h *Handler) HandleQuizDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	data, err := h.store.GetRaw(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, "Quiz not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to read quiz: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
