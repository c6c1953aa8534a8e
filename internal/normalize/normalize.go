// Package normalize cleans raw OCR text with a fixed, injectable rule set.
package normalize

import (
	"regexp"
	"strings"
)

// minPasses is the floor of the per-line fixpoint bound. The bound grows with
// the line length so shrinking fixes such as iin -> in always settle.
const minPasses = 8

var numberingLine = regexp.MustCompile(`^\d+\s*[.:)]`)

// Fix replaces a known OCR misreading with its correction.
type Fix struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Rules configures the normalizer.
type Rules struct {
	MinLineLength   int      `yaml:"min_line_length"`
	NoisePrefixes   []string `yaml:"noise_prefixes"`
	NoiseSubstrings []string `yaml:"noise_substrings"`
	Fixes           []Fix    `yaml:"fixes"`
}

// DefaultRules returns the rules tuned for the reference slide captures.
func DefaultRules() Rules {
	return Rules{
		MinLineLength:   2,
		NoisePrefixes:   []string{"<<", ">>"},
		NoiseSubstrings: []string{"Orrell SS"},
		Fixes: []Fix{
			{From: "Whet", To: "What"},
			{From: "Vernie", To: "Vernier"},
			{From: "iin", To: "in"},
			{From: "Fig ure", To: "Figure"},
			{From: "Vernierr", To: "Vernier"},
			{From: "readin", To: "reading"},
		},
	}
}

// Normalizer applies Rules line by line. It is deterministic and safe for
// concurrent use.
type Normalizer struct {
	rules Rules
}

func New(rules Rules) *Normalizer {
	return &Normalizer{rules: rules}
}

// Clean trims each line, applies the fixes and drops short and noise lines.
func (n *Normalizer) Clean(text string) string {
	return n.clean(text, false)
}

// CleanQuestion is Clean plus removal of leading question numbering lines
// such as "12." or "3)".
func (n *Normalizer) CleanQuestion(text string) string {
	return n.clean(text, true)
}

func (n *Normalizer) clean(text string, question bool) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = n.fixLine(strings.TrimSpace(line))
		if len([]rune(line)) < n.rules.MinLineLength || line == "" {
			continue
		}
		if n.isNoise(line) {
			continue
		}
		if question && numberingLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func (n *Normalizer) isNoise(line string) bool {
	for _, p := range n.rules.NoisePrefixes {
		if p != "" && strings.HasPrefix(line, p) {
			return true
		}
	}
	for _, s := range n.rules.NoiseSubstrings {
		if s != "" && strings.Contains(line, s) {
			return true
		}
	}
	return false
}

// fixLine applies every fix until the line stops changing.
func (n *Normalizer) fixLine(line string) string {
	limit := len(line) + minPasses
	for i := 0; i < limit; i++ {
		next := line
		for _, f := range n.rules.Fixes {
			next = replaceGuarded(next, f.From, f.To)
		}
		next = strings.TrimSpace(next)
		if next == line {
			break
		}
		line = next
	}
	return line
}

// replaceGuarded replaces from with to, skipping occurrences that are
// already part of an instance of to. This keeps corrections such as
// readin -> reading stable on text that was already corrected.
func replaceGuarded(s, from, to string) string {
	if from == "" || from == to || !strings.Contains(s, from) {
		return s
	}
	offset := strings.Index(to, from)

	var b strings.Builder
	i := 0
	for {
		j := strings.Index(s[i:], from)
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		j += i
		if offset >= 0 && j >= offset && strings.HasPrefix(s[j-offset:], to) {
			b.WriteString(s[i : j+len(from)])
			i = j + len(from)
			continue
		}
		b.WriteString(s[i:j])
		b.WriteString(to)
		i = j + len(from)
	}
	return b.String()
}
