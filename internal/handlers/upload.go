package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/lehigh-university-libraries/quizocr/internal/assemble"
	"github.com/lehigh-university-libraries/quizocr/internal/models"
)

type uploadedFile struct {
	name string
	data []byte
}

// HandleUpload accepts either a questions_file (plus optional answers_file)
// for the document flow or a single file for the OCR flow.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	questions, err := readFormFile(r, "questions_file")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if questions != nil {
		answers, err := readFormFile(r, "answers_file")
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.handleDocumentUpload(w, r, questions, answers)
		return
	}

	file, err := readFormFile(r, "file")
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if file == nil {
		h.writeError(w, "A questions_file or file upload is required", http.StatusBadRequest)
		return
	}
	h.handleFileUpload(w, r, file)
}

func (h *Handler) handleDocumentUpload(w http.ResponseWriter, r *http.Request, questions, answers *uploadedFile) {
	id := assemble.NewID()
	if !h.saveUpload(w, id, "questions", questions) {
		return
	}
	var answersData []byte
	if answers != nil {
		if !h.saveUpload(w, id, "answers", answers) {
			return
		}
		answersData = answers.data
	}

	result, err := h.extractor.ExtractDocuments(r.Context(), questions.data, answersData, assemble.Meta{
		ID:             id,
		Title:          r.FormValue("title"),
		SourceFilename: questions.name,
	})
	if err != nil {
		h.writeError(w, "Extraction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	raw := map[string]json.RawMessage{"questions": result.QuestionsRaw, "answers": result.AnswersRaw}
	if err := h.store.SaveDocument(result.Record, raw); err != nil {
		h.writeError(w, "Failed to save quiz: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.respondStored(w, result.Record)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request, file *uploadedFile) {
	id := assemble.NewID()
	if !h.saveUpload(w, id, "source", file) {
		return
	}

	record, err := h.extractor.ExtractBytes(r.Context(), file.name, file.data, assemble.Meta{
		ID:    id,
		Title: r.FormValue("title"),
	})
	if err != nil {
		h.writeError(w, "Extraction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.store.Save(record); err != nil {
		h.writeError(w, "Failed to save quiz: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.respondStored(w, record)
}

func (h *Handler) saveUpload(w http.ResponseWriter, id, kind string, file *uploadedFile) bool {
	if _, err := h.store.SaveUpload(id, kind, file.name, bytes.NewReader(file.data)); err != nil {
		h.writeError(w, "Failed to store upload: "+err.Error(), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *Handler) respondStored(w http.ResponseWriter, record *models.QuizRecord) {
	slog.Info("Quiz saved", "id", record.ID, "questions", record.TotalQuestions, "confidence", record.Confidence)

	h.writeJSON(w, map[string]any{
		"message": "Files processed successfully",
		"quiz_id": record.ID,
		"title":   record.QuizTitle,
	})
}

// readFormFile returns nil when field is absent.
func readFormFile(r *http.Request, field string) (*uploadedFile, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, fmt.Errorf("no selected file for %s", field)
	}
	data, err := readAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s contents: %w", field, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", field)
	}
	return &uploadedFile{name: header.Filename, data: data}, nil
}

func readAll(f multipart.File) ([]byte, error) {
	return io.ReadAll(io.LimitReader(f, maxUploadSize))
}
