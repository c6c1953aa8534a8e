// Package structure turns normalized option text into exactly four options.
package structure

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
)

var (
	optionLine = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.+)$`)
	// OCR reads "1." as "i." or "l." and "2." as "z." on slide captures.
	misnumbered  = regexp.MustCompile(`^(?i)([il]|z)([.)])`)
	numberPrefix = regexp.MustCompile(`^\d+\s*[.:)]\s*`)
)

// Structurer parses option lists. The zero value is ready to use.
type Structurer struct{}

func New() *Structurer {
	return &Structurer{}
}

// Parse returns the raw options found in text in reading order. Keys are not
// validated here; see Enforce.
func (s *Structurer) Parse(text string) []models.Option {
	var raw []models.Option
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = fixNumbering(line)

		if m := optionLine.FindStringSubmatch(line); m != nil {
			raw = append(raw, models.Option{Key: canonicalKey(m[1]), Text: strings.TrimSpace(m[2])})
			continue
		}
		if len(line) > 2 && strings.IndexFunc(line, unicode.IsDigit) >= 0 {
			raw = append(raw, models.Option{Key: strconv.Itoa(len(raw) + 1), Text: line})
		}
	}
	return raw
}

// Structure parses text and enforces the four canonical slots.
func (s *Structurer) Structure(text string) []models.Option {
	return Enforce(s.Parse(text))
}

// Enforce maps raw options onto keys "1".."4". Entries with other keys or
// empty text are ignored, a repeated key keeps its last text and missing
// keys get the sentinel.
func Enforce(raw []models.Option) []models.Option {
	byKey := make(map[string]string, len(models.OptionKeys))
	for _, o := range raw {
		text := strings.TrimSpace(o.Text)
		if text == "" || !isOptionKey(o.Key) {
			continue
		}
		byKey[o.Key] = text
	}

	out := make([]models.Option, 0, len(models.OptionKeys))
	for _, k := range models.OptionKeys {
		text, ok := byKey[k]
		if !ok {
			text = models.Sentinel
		}
		out = append(out, models.Option{Key: k, Text: text})
	}
	return out
}

// SplitQuestion separates a block of page text into the question part and the
// option list, splitting at the first numbered option line after the first
// non-empty line. The first line always belongs to the question and loses its
// question number. Used for pages read from a PDF text layer.
func SplitQuestion(text string) (question, options string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return "", ""
	}
	lines[0] = numberPrefix.ReplaceAllString(strings.TrimSpace(lines[0]), "")

	for i := 1; i < len(lines); i++ {
		if optionLine.MatchString(fixNumbering(strings.TrimSpace(lines[i]))) {
			return strings.Join(lines[:i], "\n"), strings.Join(lines[i:], "\n")
		}
	}
	return strings.Join(lines, "\n"), ""
}

func fixNumbering(line string) string {
	m := misnumbered.FindStringSubmatchIndex(line)
	if m == nil {
		return line
	}
	digit := "1"
	if strings.EqualFold(line[m[2]:m[3]], "z") {
		digit = "2"
	}
	return digit + line[m[3]:]
}

func isOptionKey(k string) bool {
	for _, key := range models.OptionKeys {
		if k == key {
			return true
		}
	}
	return false
}

// canonicalKey strips leading zeros so "01." and "1." share a slot.
func canonicalKey(digits string) string {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return digits
	}
	return strconv.Itoa(n)
}
