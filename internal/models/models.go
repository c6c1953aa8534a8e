package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel marks option text that could not be read.
const Sentinel = "?"

// OptionKeys are the canonical option keys, in order.
var OptionKeys = []string{"1", "2", "3", "4"}

// Confidence is a coarse quality signal for extracted content
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Option represents a single answer option
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question represents a single extracted quiz question
type Question struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

// OptionTexts returns the option texts in order.
func (q Question) OptionTexts() []string {
	texts := make([]string, len(q.Options))
	for i, opt := range q.Options {
		texts[i] = opt.Text
	}
	return texts
}

// Answer is one entry of an answer key document
type Answer struct {
	QuestionID QuestionRef `json:"question_id"`
	CorrectKey string      `json:"correct_key"`
}

// QuestionRef is a question identifier as it appears in extracted JSON.
// Numbers and numeric strings canonicalize to the same value.
type QuestionRef string

// NewQuestionRef returns the canonical reference for a question id.
func NewQuestionRef(id int) QuestionRef {
	return QuestionRef(strconv.Itoa(id))
}

// CanonicalQuestionRef trims the value and strips leading zeros from numeric ids.
func CanonicalQuestionRef(s string) QuestionRef {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return NewQuestionRef(n)
	}
	return QuestionRef(s)
}

// UnmarshalJSON accepts both JSON numbers and strings
func (r *QuestionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = CanonicalQuestionRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question_id must be a number or string: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*r = QuestionRef(strconv.FormatInt(i, 10))
		return nil
	}
	*r = QuestionRef(n.String())
	return nil
}

// QuizRecord is the persisted result of one document extraction
type QuizRecord struct {
	ID             string     `json:"id"`
	QuizTitle      string     `json:"quiz_title"`
	TotalQuestions int        `json:"total_questions"`
	Questions      []Question `json:"questions"`
	CreatedAt      time.Time  `json:"created_at"`
	SourceFilename string     `json:"source_filename"`
	Confidence     Confidence `json:"confidence"`
	Source         string     `json:"source,omitempty"`
	HasAnswers     bool       `json:"has_answers"`
}

// SlideRecord is the single-slide artifact written by the OCR pipeline
type SlideRecord struct {
	Exam           string     `json:"exam"`
	QuestionNumber int        `json:"question_number"`
	Question       string     `json:"question"`
	Options        []Option   `json:"options"`
	Source         string     `json:"source"`
	Confidence     Confidence `json:"confidence"`
}

// NewSlideRecord converts an assembled question into a slide artifact.
func NewSlideRecord(exam, source string, q Question, confidence Confidence) SlideRecord {
	return SlideRecord{
		Exam:           exam,
		QuestionNumber: q.ID,
		Question:       q.Question,
		Options:        q.Options,
		Source:         source,
		Confidence:     confidence,
	}
}

// QuizSummary is the listing entry for a stored quiz
type QuizSummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	TotalQuestions int    `json:"total_questions"`
	CreatedAt      string `json:"created_at"`
	Filename       string `json:"filename"`
}
