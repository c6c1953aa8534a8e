package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
)

// Match methods, from best to worst.
const (
	MethodExact           = "exact"
	MethodSubstring       = "substring"
	MethodFuzzyHigh       = "fuzzy_high"
	MethodFuzzyMedium     = "fuzzy_medium"
	MethodNoMatch         = "no_match"
	MethodActualMissing   = "actual_missing"
	MethodExpectedMissing = "expected_missing"
	MethodBothMissing     = "both_missing"
)

var punctuation = regexp.MustCompile(`[^\w\s]`)

// FieldMatch is the comparison of one expected and one extracted text
type FieldMatch struct {
	Expected string  `json:"expected" yaml:"expected"`
	Actual   string  `json:"actual" yaml:"actual"`
	Score    float64 `json:"score" yaml:"score"`
	Method   string  `json:"method" yaml:"method"`
	Distance int     `json:"distance" yaml:"distance"`
	Notes    string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// QuestionComparison scores an extracted question against ground truth
type QuestionComparison struct {
	Question      FieldMatch   `json:"question"`
	Options       []FieldMatch `json:"options"`
	AnswerChecked bool         `json:"answer_checked"`
	AnswerCorrect bool         `json:"answer_correct"`
	OverallScore  float64      `json:"overall_score"`
	DistanceTotal int          `json:"distance_total"`
}

// CompareQuestion compares question text and options by key. The overall
// score weighs the question text and the mean option score equally.
func CompareQuestion(expected, actual models.Question) *QuestionComparison {
	c := &QuestionComparison{
		Question: CompareText(expected.Question, actual.Question),
	}
	c.DistanceTotal = c.Question.Distance

	actualByKey := make(map[string]string, len(actual.Options))
	for _, opt := range actual.Options {
		if opt.Text != models.Sentinel {
			actualByKey[opt.Key] = opt.Text
		}
	}

	var optionTotal float64
	for _, opt := range expected.Options {
		match := CompareText(opt.Text, actualByKey[opt.Key])
		c.Options = append(c.Options, match)
		c.DistanceTotal += match.Distance
		optionTotal += match.Score
	}

	if len(c.Options) > 0 {
		c.OverallScore = (c.Question.Score + optionTotal/float64(len(c.Options))) / 2
	} else {
		c.OverallScore = c.Question.Score
	}

	if expected.CorrectAnswer != "" {
		c.AnswerChecked = true
		c.AnswerCorrect = expected.CorrectAnswer == actual.CorrectAnswer
	}
	return c
}

// CompareText scores actual against expected after normalizing case,
// punctuation and whitespace.
func CompareText(expected, actual string) FieldMatch {
	match := FieldMatch{
		Expected: expected,
		Actual:   actual,
	}

	expNorm := normalizeForComparison(expected)
	actNorm := normalizeForComparison(actual)

	switch {
	case expNorm == "" && actNorm == "":
		match.Score = 0.5
		match.Method = MethodBothMissing
		return match
	case expNorm == "":
		match.Method = MethodExpectedMissing
		return match
	case actNorm == "":
		match.Method = MethodActualMissing
		match.Distance = len([]rune(expNorm))
		return match
	}

	match.Distance = levenshteinDistance(expNorm, actNorm)

	if expNorm == actNorm {
		match.Score = 1.0
		match.Method = MethodExact
		return match
	}

	// Partial match: one text contains the other
	if strings.Contains(actNorm, expNorm) || strings.Contains(expNorm, actNorm) {
		match.Score = 0.8
		match.Method = MethodSubstring
		return match
	}

	similarity := Similarity(expNorm, actNorm)
	match.Score = similarity
	switch {
	case similarity > 0.7:
		match.Method = MethodFuzzyHigh
	case similarity > 0.4:
		match.Method = MethodFuzzyMedium
	default:
		match.Method = MethodNoMatch
	}
	match.Notes = fmt.Sprintf("similarity %.2f, distance %d", similarity, match.Distance)
	return match
}

func normalizeForComparison(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Similarity is one minus the edit distance over the longer length.
func Similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}
	maxLen := max(len(r1), len(r2))
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(maxLen)
}

// levenshteinDistance counts rune edits between two strings.
func levenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
