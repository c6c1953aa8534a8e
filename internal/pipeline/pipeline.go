// Package pipeline runs the OCR-to-quiz reconstruction for images, PDFs and
// questions/answers document pairs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/quizocr/internal/assemble"
	"github.com/lehigh-university-libraries/quizocr/internal/document"
	"github.com/lehigh-university-libraries/quizocr/internal/llm"
	"github.com/lehigh-university-libraries/quizocr/internal/models"
	"github.com/lehigh-university-libraries/quizocr/internal/normalize"
	"github.com/lehigh-university-libraries/quizocr/internal/ocr"
	"github.com/lehigh-university-libraries/quizocr/internal/region"
	"github.com/lehigh-university-libraries/quizocr/internal/structure"
)

// Recognizer reads text from an image region
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, preset ocr.Preset) (string, error)
}

// Cleaner corrects a drafted question. Implementations must not fail and
// must return as many options as they were given.
type Cleaner interface {
	Clean(ctx context.Context, question string, options []string) (string, []string)
}

// DocumentExtractor reads questions and answers from whole PDF documents
type DocumentExtractor interface {
	ExtractQuestions(ctx context.Context, pdf []byte) (llm.QuestionSet, json.RawMessage, error)
	ExtractAnswers(ctx context.Context, pdf []byte) (llm.AnswerSet, json.RawMessage, error)
}

// Settings are the non-component pipeline parameters
type Settings struct {
	Regions        region.Set
	QuestionPreset ocr.Preset
	OptionsPreset  ocr.Preset
	Rules          normalize.Rules
	Exam           string
	SourceTag      string
	UseTextLayer   bool
	MinTextLength  int
	RenderDPI      int
}

// Pipeline holds the stages. It keeps no per-document state, so one value
// may serve concurrent requests.
type Pipeline struct {
	settings   Settings
	recognizer Recognizer
	normalizer *normalize.Normalizer
	structurer *structure.Structurer
	cleaner    Cleaner
	extractor  DocumentExtractor
	loader     *document.Loader
}

// New assembles a pipeline. cleaner and extractor may be nil: cleanup is then
// skipped and the document flow reports llm.ErrNoCredentials.
func New(settings Settings, recognizer Recognizer, cleaner Cleaner, extractor DocumentExtractor) *Pipeline {
	dpi := settings.RenderDPI
	if dpi <= 0 {
		dpi = 300
	}
	return &Pipeline{
		settings:   settings,
		recognizer: recognizer,
		normalizer: normalize.New(settings.Rules),
		structurer: structure.New(),
		cleaner:    cleaner,
		extractor:  extractor,
		loader:     document.NewLoader(dpi),
	}
}

// WithLoader replaces the document loader.
func (p *Pipeline) WithLoader(l *document.Loader) *Pipeline {
	p.loader = l
	return p
}

// DisableCleanup turns off the LLM cleanup stage.
func (p *Pipeline) DisableCleanup() {
	p.cleaner = nil
}

// CleanupEnabled reports whether drafted questions go through the cleaner.
func (p *Pipeline) CleanupEnabled() bool {
	return p.cleaner != nil
}

// ProcessImage reconstructs one question from a slide image.
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image, id int) (models.Question, error) {
	questionImg, err := region.Crop(img, p.settings.Regions.Question)
	if err != nil {
		return models.Question{}, fmt.Errorf("question region: %w", err)
	}
	optionsImg, err := region.Crop(img, p.settings.Regions.Options)
	if err != nil {
		return models.Question{}, fmt.Errorf("options region: %w", err)
	}

	questionRaw, err := p.recognizer.Recognize(ctx, questionImg, p.settings.QuestionPreset)
	if err != nil {
		return models.Question{}, fmt.Errorf("question OCR: %w", err)
	}
	optionsRaw, err := p.recognizer.Recognize(ctx, optionsImg, p.settings.OptionsPreset)
	if err != nil {
		return models.Question{}, fmt.Errorf("options OCR: %w", err)
	}

	return p.fromText(ctx, id, questionRaw, optionsRaw), nil
}

// ProcessPage reconstructs one question from a document page, using the
// PDF text layer when it carries enough text.
func (p *Pipeline) ProcessPage(ctx context.Context, page document.Page, id int) (models.Question, error) {
	if p.settings.UseTextLayer && len(page.Text) >= p.settings.MinTextLength && page.Text != "" {
		question, options := structure.SplitQuestion(page.Text)
		slog.Debug("Using PDF text layer", "page", page.Number)
		return p.fromText(ctx, id, question, options), nil
	}
	if page.Image == nil {
		return models.Question{}, fmt.Errorf("page %d has no image and too little text", page.Number)
	}
	return p.ProcessImage(ctx, page.Image, id)
}

func (p *Pipeline) fromText(ctx context.Context, id int, questionRaw, optionsRaw string) models.Question {
	questionText := p.normalizer.CleanQuestion(questionRaw)
	options := p.structurer.Structure(p.normalizer.Clean(optionsRaw))

	draft := assemble.BuildQuestion(id, questionText, options, nil)
	if p.cleaner == nil {
		return draft
	}
	corrected, texts := p.cleaner.Clean(ctx, draft.Question, draft.OptionTexts())
	q := assemble.BuildQuestion(id, corrected, draft.Options, texts)
	if q.Question == "" {
		q.Question = draft.Question
	}
	return q
}

// ExtractFile runs the OCR flow over every page of an image or PDF file.
func (p *Pipeline) ExtractFile(ctx context.Context, path string, meta assemble.Meta) (*models.QuizRecord, error) {
	pages, err := p.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if meta.SourceFilename == "" {
		meta.SourceFilename = filepath.Base(path)
	}
	return p.extractPages(ctx, pages, meta)
}

// ExtractBytes is ExtractFile for in-memory uploads.
func (p *Pipeline) ExtractBytes(ctx context.Context, name string, data []byte, meta assemble.Meta) (*models.QuizRecord, error) {
	pages, err := p.loader.LoadBytes(ctx, name, data)
	if err != nil {
		return nil, err
	}
	if meta.SourceFilename == "" {
		meta.SourceFilename = name
	}
	return p.extractPages(ctx, pages, meta)
}

func (p *Pipeline) extractPages(ctx context.Context, pages []document.Page, meta assemble.Meta) (*models.QuizRecord, error) {
	start := time.Now()
	questions := make([]models.Question, 0, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := p.ProcessPage(ctx, page, i+1)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		questions = append(questions, q)
	}

	if meta.Source == "" {
		meta.Source = p.settings.SourceTag
	}
	record := assemble.NewRecord(meta, questions)
	slog.Info("Extracted quiz",
		"id", record.ID,
		"file", record.SourceFilename,
		"questions", record.TotalQuestions,
		"confidence", record.Confidence,
		"elapsed", time.Since(start))
	return record, nil
}

// ExtractSlide produces the single-slide artifact for an image file.
func (p *Pipeline) ExtractSlide(ctx context.Context, path string, number int) (models.SlideRecord, error) {
	pages, err := p.loader.Load(ctx, path)
	if err != nil {
		return models.SlideRecord{}, err
	}
	if number <= 0 {
		number = 1
	}
	q, err := p.ProcessPage(ctx, pages[0], number)
	if err != nil {
		return models.SlideRecord{}, err
	}
	if len(pages) > 1 {
		slog.Warn("Slide format uses the first page only", "file", path, "pages", len(pages))
	}
	return models.NewSlideRecord(p.settings.Exam, p.settings.SourceTag, q, assemble.QuestionConfidence(q)), nil
}

// DocumentResult is the outcome of the questions/answers document flow
type DocumentResult struct {
	Record       *models.QuizRecord
	QuestionsRaw json.RawMessage
	AnswersRaw   json.RawMessage
}

// ExtractDocuments sends a questions PDF and an optional answers PDF to the
// hosted model and merges the answers into the questions by id.
func (p *Pipeline) ExtractDocuments(ctx context.Context, questionsPDF, answersPDF []byte, meta assemble.Meta) (*DocumentResult, error) {
	if p.extractor == nil {
		return nil, llm.ErrNoCredentials
	}

	set, questionsRaw, err := p.extractor.ExtractQuestions(ctx, questionsPDF)
	if err != nil {
		return nil, fmt.Errorf("failed to extract questions: %w", err)
	}
	questions := assemble.FromDrafts(set.Questions)

	var answersRaw json.RawMessage
	if len(answersPDF) > 0 {
		answers, raw, err := p.extractor.ExtractAnswers(ctx, answersPDF)
		if err != nil {
			return nil, fmt.Errorf("failed to extract answers: %w", err)
		}
		answersRaw = raw
		questions = assemble.Merge(questions, answers.Answers)
	}

	if meta.Title == "" {
		meta.Title = set.QuizTitle
	}
	if meta.Source == "" {
		meta.Source = "llm_document"
	}
	record := assemble.NewRecord(meta, questions)
	slog.Info("Extracted quiz documents",
		"id", record.ID,
		"questions", record.TotalQuestions,
		"has_answers", record.HasAnswers,
		"confidence", record.Confidence)
	return &DocumentResult{Record: record, QuestionsRaw: questionsRaw, AnswersRaw: answersRaw}, nil
}
