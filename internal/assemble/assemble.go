// Package assemble merges pipeline outputs into quiz records.
package assemble

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/quizocr/internal/llm"
	"github.com/lehigh-university-libraries/quizocr/internal/models"
	"github.com/lehigh-university-libraries/quizocr/internal/structure"
)

// DefaultTitle is used when a document carries no title.
const DefaultTitle = "Uploaded Quiz"

// Meta describes the document a record is built from.
type Meta struct {
	ID             string
	Title          string
	SourceFilename string
	Source         string
	CreatedAt      time.Time
}

// NewID returns a short random record identifier.
func NewID() string {
	return uuid.NewString()[:8]
}

// QuestionConfidence is medium when any option is unreadable.
func QuestionConfidence(q models.Question) models.Confidence {
	for _, opt := range q.Options {
		if opt.Text == models.Sentinel {
			return models.ConfidenceMedium
		}
	}
	return models.ConfidenceHigh
}

// RecordConfidence is medium when any question is medium.
func RecordConfidence(questions []models.Question) models.Confidence {
	for _, q := range questions {
		if QuestionConfidence(q) == models.ConfidenceMedium {
			return models.ConfidenceMedium
		}
	}
	return models.ConfidenceHigh
}

// BuildQuestion combines the question text with structured options and the
// corrected option texts. corrected is applied by position and ignored when
// its length does not match.
func BuildQuestion(id int, text string, options []models.Option, corrected []string) models.Question {
	opts := structure.Enforce(options)
	if len(corrected) == len(opts) {
		for i := range opts {
			if t := strings.TrimSpace(corrected[i]); t != "" {
				opts[i].Text = t
			}
		}
	}
	return models.Question{ID: id, Question: strings.TrimSpace(text), Options: opts}
}

// FromDrafts converts model-extracted questions into canonical questions.
// A draft keeps its own id when it is a positive integer not used before;
// otherwise it gets its 1-based position.
func FromDrafts(drafts []llm.QuestionDraft) []models.Question {
	used := make(map[int]bool, len(drafts))
	questions := make([]models.Question, 0, len(drafts))
	for i, d := range drafts {
		id, err := strconv.Atoi(string(d.ID))
		if err != nil || id <= 0 || used[id] {
			id = i + 1
			for used[id] {
				id++
			}
		}
		used[id] = true

		opts := make([]models.Option, len(d.Options))
		for j, o := range d.Options {
			opts[j] = models.Option{Key: CoerceKey(o.Key), Text: o.Text}
		}
		questions = append(questions, BuildQuestion(id, d.Question, opts, nil))
	}
	return questions
}

// CoerceKey maps answer and option keys to "1".."4". Letters A-D become
// digits, numeric keys lose padding; anything else is returned trimmed.
func CoerceKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.TrimRight(key, ".)")
	if len(key) == 1 {
		c := key[0] | 0x20
		if c >= 'a' && c <= 'd' {
			return strconv.Itoa(int(c-'a') + 1)
		}
	}
	return string(models.CanonicalQuestionRef(key))
}

// Merge sets correct_answer on questions whose id matches an answer's
// question_id. Questions without an answer keep an empty correct_answer and
// answers for unknown questions are ignored. Matching is by id only.
func Merge(questions []models.Question, answers []models.Answer) []models.Question {
	byID := make(map[models.QuestionRef]string, len(answers))
	for _, a := range answers {
		ref := models.CanonicalQuestionRef(string(a.QuestionID))
		key := CoerceKey(a.CorrectKey)
		if ref == "" || key == "" {
			continue
		}
		byID[ref] = key
	}

	merged := make([]models.Question, len(questions))
	matched := 0
	for i, q := range questions {
		ref := models.NewQuestionRef(q.ID)
		if key, ok := byID[ref]; ok {
			q.CorrectAnswer = key
			matched++
			delete(byID, ref)
		} else {
			q.CorrectAnswer = ""
		}
		merged[i] = q
	}

	if matched < len(questions) || len(byID) > 0 {
		slog.Warn("Answer key does not cover all questions",
			"questions", len(questions),
			"matched", matched,
			"unmatched_answers", len(byID))
	}
	return merged
}

// NewRecord builds a record around questions.
func NewRecord(meta Meta, questions []models.Question) *models.QuizRecord {
	if meta.ID == "" {
		meta.ID = NewID()
	}
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = DefaultTitle
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	if questions == nil {
		questions = []models.Question{}
	}

	hasAnswers := false
	for _, q := range questions {
		if q.CorrectAnswer != "" {
			hasAnswers = true
			break
		}
	}

	return &models.QuizRecord{
		ID:             meta.ID,
		QuizTitle:      meta.Title,
		TotalQuestions: len(questions),
		Questions:      questions,
		CreatedAt:      meta.CreatedAt,
		SourceFilename: meta.SourceFilename,
		Confidence:     RecordConfidence(questions),
		Source:         meta.Source,
		HasAnswers:     hasAnswers,
	}
}
