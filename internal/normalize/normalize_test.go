package normalize

import "testing"

func TestCleanKnownErrors(t *testing.T) {
	n := New(DefaultRules())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "whet and vernie", input: "Whet is Vernie reading?", want: "What is Vernier reading?"},
		{name: "punctuation around fix", input: "(Whet) Vernie, readin.", want: "(What) Vernier, reading."},
		{name: "split word", input: "See Fig ure 3", want: "See Figure 3"},
		{name: "doubled letter", input: "Vernierr scale", want: "Vernier scale"},
		{name: "already correct", input: "What is the Vernier reading?", want: "What is the Vernier reading?"},
		{name: "iin", input: "mounted iin the frame", want: "mounted in the frame"},
		{name: "repeated i", input: "iiiiiiiiiiiiiin", want: "in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Clean(tt.input); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCleanFiltersLines(t *testing.T) {
	n := New(DefaultRules())
	input := "  x  \n<< Back\nNext >>\n>> menu\nOrrell SS 2021 capture\n\n  1. Steel  \n2. Brass"

	got := n.Clean(input)
	want := "Next >>\n1. Steel\n2. Brass"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestCleanQuestionDropsNumbering(t *testing.T) {
	n := New(DefaultRules())
	input := "12.\nWhet is the reading\n3)\n4: of the gauge?"

	got := n.CleanQuestion(input)
	want := "What is the reading"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	// Options keep their numbering.
	if got := n.Clean("1. Steel"); got != "1. Steel" {
		t.Errorf("Expected option numbering to survive Clean, got %q", got)
	}
}

func TestCleanIdempotent(t *testing.T) {
	n := New(DefaultRules())
	inputs := []string{
		"Whet is Vernie reading?",
		"readin readinreadin Vernierrr",
		"Fig ure Fig  ure\n<< x\na\n  Vernie Vernier Vernierr  ",
		"iiin iin in",
		"5. Whet\nOrrell SS\nThe Fig ure shows",
		"",
	}

	for _, input := range inputs {
		once := n.Clean(input)
		if twice := n.Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: %q then %q", input, once, twice)
		}
		onceQ := n.CleanQuestion(input)
		if twiceQ := n.CleanQuestion(onceQ); twiceQ != onceQ {
			t.Errorf("CleanQuestion not idempotent for %q: %q then %q", input, onceQ, twiceQ)
		}
	}
}

func TestInjectedRules(t *testing.T) {
	n := New(Rules{
		MinLineLength:   1,
		NoiseSubstrings: []string{"WATERMARK"},
		Fixes:           []Fix{{From: "0hm", To: "Ohm"}},
	})

	got := n.Clean("a\n0hm's law\nWATERMARK")
	if got != "a\nOhm's law" {
		t.Errorf("Expected fixture rules to apply, got %q", got)
	}
}

func TestReplaceGuarded(t *testing.T) {
	tests := []struct {
		s, from, to, want string
	}{
		{"readin", "readin", "reading", "reading"},
		{"reading", "readin", "reading", "reading"},
		{"readin reading", "readin", "reading", "reading reading"},
		{"no match", "xyz", "abc", "no match"},
		{"aaa", "", "b", "aaa"},
	}
	for _, tt := range tests {
		if got := replaceGuarded(tt.s, tt.from, tt.to); got != tt.want {
			t.Errorf("replaceGuarded(%q, %q, %q) = %q, want %q", tt.s, tt.from, tt.to, got, tt.want)
		}
	}
}
