package metrics

import (
	"math"
	"testing"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2   string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"vernier", "vernie", 1},
		{"café", "cafe", 1},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.s1, tt.s2); got != tt.expected {
			t.Errorf("levenshteinDistance(%q, %q): expected %d, got %d", tt.s1, tt.s2, tt.expected, got)
		}
	}
}

func TestCompareText(t *testing.T) {
	tests := []struct {
		name           string
		expected       string
		actual         string
		expectedMethod string
		minScore       float64
		maxScore       float64
	}{
		{name: "exact ignoring case and punctuation", expected: "What is Vernier reading?", actual: "what is vernier reading", expectedMethod: MethodExact, minScore: 1, maxScore: 1},
		{name: "substring", expected: "Steel", actual: "Steel plate", expectedMethod: MethodSubstring, minScore: 0.8, maxScore: 0.8},
		{name: "ocr typo", expected: "What is Vernier reading?", actual: "Whet is Vernie reading?", expectedMethod: MethodFuzzyHigh, minScore: 0.7, maxScore: 0.99},
		{name: "different", expected: "Torque wrench", actual: "xyz", expectedMethod: MethodNoMatch, minScore: 0, maxScore: 0.4},
		{name: "actual missing", expected: "Torque", actual: "", expectedMethod: MethodActualMissing, minScore: 0, maxScore: 0},
		{name: "expected missing", expected: "", actual: "Torque", expectedMethod: MethodExpectedMissing, minScore: 0, maxScore: 0},
		{name: "both missing", expected: "", actual: " ", expectedMethod: MethodBothMissing, minScore: 0.5, maxScore: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := CompareText(tt.expected, tt.actual)
			if match.Method != tt.expectedMethod {
				t.Errorf("Expected method %s, got %s", tt.expectedMethod, match.Method)
			}
			if match.Score < tt.minScore || match.Score > tt.maxScore {
				t.Errorf("Expected score in [%.2f, %.2f], got %.3f", tt.minScore, tt.maxScore, match.Score)
			}
		})
	}
}

func TestCompareQuestion(t *testing.T) {
	expected := models.Question{
		Question: "What is a shim?",
		Options: []models.Option{
			{Key: "1", Text: "A spacer"}, {Key: "2", Text: "A bolt"},
			{Key: "3", Text: "A nut"}, {Key: "4", Text: "A key"},
		},
		CorrectAnswer: "1",
	}
	actual := models.Question{
		Question: "What is a shim?",
		Options: []models.Option{
			{Key: "1", Text: "A spacer"}, {Key: "2", Text: "A bolt"},
			{Key: "3", Text: "A nut"}, {Key: "4", Text: models.Sentinel},
		},
		CorrectAnswer: "2",
	}

	c := CompareQuestion(expected, actual)
	if len(c.Options) != 4 {
		t.Fatalf("Expected 4 option matches, got %d", len(c.Options))
	}
	if c.Options[3].Method != MethodActualMissing {
		t.Errorf("Expected sentinel option to count as missing, got %s", c.Options[3].Method)
	}
	// question 1.0, options (1+1+1+0)/4
	if math.Abs(c.OverallScore-0.875) > 1e-9 {
		t.Errorf("Expected overall 0.875, got %.4f", c.OverallScore)
	}
	if !c.AnswerChecked || c.AnswerCorrect {
		t.Errorf("Expected checked and incorrect answer, got checked=%v correct=%v", c.AnswerChecked, c.AnswerCorrect)
	}
}

func TestCompareQuestionWithoutAnswer(t *testing.T) {
	q := models.Question{Question: "Q"}
	c := CompareQuestion(q, q)
	if c.AnswerChecked {
		t.Error("Expected answer not to be checked without ground truth")
	}
	if c.OverallScore != 1 {
		t.Errorf("Expected overall 1, got %.3f", c.OverallScore)
	}
}
