package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("quiz not found")

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileStore keeps quiz records as JSON files in one directory, alongside
// the raw model responses and the uploaded sources.
type FileStore struct {
	quizDir   string
	uploadDir string
	mu        sync.RWMutex
}

// New creates both directories if needed. An empty uploadDir gives a
// read-only view of the quiz directory.
func New(quizDir, uploadDir string) (*FileStore, error) {
	for _, dir := range []string{quizDir, uploadDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return &FileStore{quizDir: quizDir, uploadDir: uploadDir}, nil
}

// Save writes record as <id>.json.
func (s *FileStore) Save(record *models.QuizRecord) error {
	if !validID.MatchString(record.ID) {
		return fmt.Errorf("invalid quiz id %q", record.ID)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal quiz: %w", err)
	}
	return s.write(s.quizDir, record.ID+".json", data)
}

// SaveRaw writes a raw model response as <id>_<kind>.json, re-indented.
func (s *FileStore) SaveRaw(id, kind string, raw json.RawMessage) error {
	if !validID.MatchString(id) || !validID.MatchString(kind) {
		return fmt.Errorf("invalid artifact name %q/%q", id, kind)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("raw %s response is not JSON: %w", kind, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return s.write(s.quizDir, id+"_"+kind+".json", data)
}

// SaveDocument writes the raw model responses (kind -> JSON) and then the
// record. If any write fails the files already written are removed, so a
// document is stored whole or not at all.
func (s *FileStore) SaveDocument(record *models.QuizRecord, raw map[string]json.RawMessage) error {
	if !validID.MatchString(record.ID) {
		return fmt.Errorf("invalid quiz id %q", record.ID)
	}
	kinds := make([]string, 0, len(raw))
	for kind, data := range raw {
		if data != nil {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)

	var written []string
	rollback := func() {
		for _, name := range written {
			if err := os.Remove(filepath.Join(s.quizDir, name)); err != nil {
				slog.Warn("Failed to remove partial artifact", "file", name, "err", err)
			}
		}
	}
	for _, kind := range kinds {
		if err := s.SaveRaw(record.ID, kind, raw[kind]); err != nil {
			rollback()
			return err
		}
		written = append(written, record.ID+"_"+kind+".json")
	}
	if err := s.Save(record); err != nil {
		rollback()
		return err
	}
	return nil
}

// SaveUpload stores an uploaded source file as <id>_<kind>_<name> and
// returns its path.
func (s *FileStore) SaveUpload(id, kind, name string, r io.Reader) (string, error) {
	if s.uploadDir == "" {
		return "", errors.New("no upload directory configured")
	}
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		name = "upload"
	}
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s_%s", id, kind, name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// Get reads the record stored under id.
func (s *FileStore) Get(id string) (*models.QuizRecord, error) {
	if !validID.MatchString(id) {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.quizDir, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read quiz %s: %w", id, err)
	}

	var record models.QuizRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse quiz %s: %w", id, err)
	}
	return &record, nil
}

// GetRaw returns the stored file for id unparsed. Legacy files that are a
// bare list of questions are served this way.
func (s *FileStore) GetRaw(id string) (json.RawMessage, error) {
	if !validID.MatchString(id) {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.quizDir, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// List returns summaries of every stored quiz, newest first. Raw model
// responses and unreadable files are skipped.
func (s *FileStore) List() ([]models.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.quizDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read quiz directory: %w", err)
	}

	summaries := make([]models.QuizSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") ||
			strings.Contains(name, "_questions") || strings.Contains(name, "_answers") {
			continue
		}
		summary, err := s.summarize(name)
		if err != nil {
			slog.Warn("Skipping unreadable quiz file", "file", name, "err", err)
			continue
		}
		summaries = append(summaries, summary)
	}

	// Missing or unparseable timestamps sort last.
	sort.SliceStable(summaries, func(i, j int) bool {
		ti, okI := parseCreatedAt(summaries[i].CreatedAt)
		tj, okJ := parseCreatedAt(summaries[j].CreatedAt)
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
	return summaries, nil
}

// createdAtLayouts are tried in order. The second is the zone-less layout
// written by older uploads.
var createdAtLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"}

func parseCreatedAt(s string) (time.Time, bool) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *FileStore) summarize(name string) (models.QuizSummary, error) {
	data, err := os.ReadFile(filepath.Join(s.quizDir, name))
	if err != nil {
		return models.QuizSummary{}, err
	}
	id := strings.TrimSuffix(name, ".json")

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var questions []json.RawMessage
		if err := json.Unmarshal(data, &questions); err != nil {
			return models.QuizSummary{}, err
		}
		return models.QuizSummary{
			ID:             id,
			Title:          legacyTitle(id),
			TotalQuestions: len(questions),
			Filename:       name,
		}, nil
	}

	var record struct {
		ID             string `json:"id"`
		QuizTitle      string `json:"quiz_title"`
		TotalQuestions int    `json:"total_questions"`
		CreatedAt      string `json:"created_at"`
		SourceFilename string `json:"source_filename"`
		Filename       string `json:"filename"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return models.QuizSummary{}, err
	}

	summary := models.QuizSummary{
		ID:             record.ID,
		Title:          record.QuizTitle,
		TotalQuestions: record.TotalQuestions,
		CreatedAt:      record.CreatedAt,
		Filename:       record.SourceFilename,
	}
	if summary.ID == "" {
		summary.ID = id
	}
	if summary.Title == "" {
		summary.Title = "Untitled Quiz"
	}
	if summary.Filename == "" {
		summary.Filename = record.Filename
	}
	if summary.Filename == "" {
		summary.Filename = name
	}
	return summary, nil
}

// legacyTitle turns "hydraulics_block_2" into "Hydraulics Block 2".
func legacyTitle(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	if len(words) == 0 {
		return "Untitled Quiz"
	}
	return strings.Join(words, " ")
}

// write stores data atomically through a temp file and rename.
func (s *FileStore) write(dir, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	slog.Debug("Stored artifact", "file", name, "bytes", len(data))
	return nil
}
