package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/quizocr/internal/assemble"
	"github.com/lehigh-university-libraries/quizocr/internal/models"
	"github.com/lehigh-university-libraries/quizocr/internal/pipeline"
	"github.com/lehigh-university-libraries/quizocr/internal/storage"
)

type stubExtractor struct {
	err      error
	meta     assemble.Meta
	answers  []byte
	fileName string
}

func (s *stubExtractor) ExtractBytes(ctx context.Context, name string, data []byte, meta assemble.Meta) (*models.QuizRecord, error) {
	s.fileName = name
	s.meta = meta
	if s.err != nil {
		return nil, s.err
	}
	meta.SourceFilename = name
	return assemble.NewRecord(meta, []models.Question{
		assemble.BuildQuestion(1, "What is a shim?", []models.Option{
			{Key: "1", Text: "A spacer"}, {Key: "2", Text: "A bolt"},
			{Key: "3", Text: "A nut"}, {Key: "4", Text: "A key"},
		}, nil),
	}), nil
}

func (s *stubExtractor) ExtractDocuments(ctx context.Context, questionsPDF, answersPDF []byte, meta assemble.Meta) (*pipeline.DocumentResult, error) {
	s.meta = meta
	s.answers = answersPDF
	if s.err != nil {
		return nil, s.err
	}
	meta.Title = "Rigging Basics"
	record := assemble.NewRecord(meta, []models.Question{
		{ID: 1, Question: "Q1", Options: []models.Option{{Key: "1", Text: "a"}}, CorrectAnswer: "1"},
	})
	result := &pipeline.DocumentResult{
		Record:       record,
		QuestionsRaw: json.RawMessage(`{"quiz_title":"Rigging Basics","questions":[]}`),
	}
	if len(answersPDF) > 0 {
		result.AnswersRaw = json.RawMessage(`{"answers":[]}`)
	}
	return result, nil
}

func newTestHandler(t *testing.T, extractor Extractor) (*Handler, *storage.FileStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.New(filepath.Join(root, "quizzes"), filepath.Join(root, "uploads"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	static := filepath.Join(root, "static")
	if err := os.MkdirAll(static, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>quiz</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	return New(store, extractor, static), store, root
}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte("%PDF-1.4 fake " + field))
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandler(t, &stubExtractor{})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body)
	}
}

func TestUploadDocuments(t *testing.T) {
	extractor := &stubExtractor{}
	h, store, root := newTestHandler(t, extractor)

	body, contentType := multipartBody(t, map[string]string{
		"questions_file": "questions.pdf",
		"answers_file":   "answers.pdf",
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	id, _ := resp["quiz_id"].(string)
	if id == "" {
		t.Fatalf("Expected quiz_id in response, got %v", resp)
	}
	if resp["title"] != "Rigging Basics" {
		t.Errorf("Expected title Rigging Basics, got %v", resp["title"])
	}
	if extractor.meta.SourceFilename != "questions.pdf" {
		t.Errorf("Expected source filename questions.pdf, got %q", extractor.meta.SourceFilename)
	}
	if len(extractor.answers) == 0 {
		t.Error("Expected answers document to reach the extractor")
	}

	record, err := store.Get(id)
	if err != nil {
		t.Fatalf("Expected record to be saved: %v", err)
	}
	if !record.HasAnswers {
		t.Error("Expected saved record to have answers")
	}
	for _, name := range []string{id + "_questions.json", id + "_answers.json"} {
		if _, err := os.Stat(filepath.Join(root, "quizzes", name)); err != nil {
			t.Errorf("Expected raw file %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "uploads", id+"_questions_questions.pdf")); err != nil {
		t.Errorf("Expected uploaded questions file to be kept: %v", err)
	}
}

func TestUploadSingleFile(t *testing.T) {
	extractor := &stubExtractor{}
	h, store, _ := newTestHandler(t, extractor)

	body, contentType := multipartBody(t, map[string]string{"file": "slides.pdf"}, map[string]string{"title": "Week 3"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["title"] != "Week 3" {
		t.Errorf("Expected title from form, got %v", resp["title"])
	}
	if extractor.fileName != "slides.pdf" {
		t.Errorf("Expected slides.pdf to be extracted, got %q", extractor.fileName)
	}
	summaries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].Filename != "slides.pdf" {
		t.Errorf("Expected one stored quiz for slides.pdf, got %+v", summaries)
	}
}

func TestUploadFailureSavesNothing(t *testing.T) {
	h, store, _ := newTestHandler(t, &stubExtractor{err: errors.New("all models exhausted")})

	body, contentType := multipartBody(t, map[string]string{"questions_file": "questions.pdf"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if msg, _ := decodeBody(t, rec)["error"].(string); msg == "" {
		t.Error("Expected error message in response")
	}
	summaries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("Expected no saved quizzes, got %d", len(summaries))
	}
}

func TestUploadMissingFile(t *testing.T) {
	h, _, _ := newTestHandler(t, &stubExtractor{})

	body, contentType := multipartBody(t, nil, map[string]string{"title": "nothing"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestQuizzesListAndDetail(t *testing.T) {
	h, store, _ := newTestHandler(t, &stubExtractor{})
	record := assemble.NewRecord(assemble.Meta{ID: "abc123", Title: "Hoisting", CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}, nil)
	if err := store.Save(record); err != nil {
		t.Fatal(err)
	}
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quizzes", nil))
	var summaries []models.QuizSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Title != "Hoisting" {
		t.Errorf("Expected one Hoisting quiz, got %+v", summaries)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quizzes/abc123", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["quiz_title"] != "Hoisting" {
		t.Errorf("Expected stored record, got %v", body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quizzes/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestStaticAndCORS(t *testing.T) {
	h, _, _ := newTestHandler(t, &stubExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.org")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "<html>quiz</html>" {
		t.Errorf("Expected index.html, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected permissive CORS header, got %q", got)
	}
}
