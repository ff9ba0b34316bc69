package tokenizer

import (
	"slices"
	"strings"
	"testing"
	"unicode"
)

func TestBuildRules_Order(t *testing.T) {
	want := []string{
		"abbreviation",
		"section-number",
		"grouped-number",
		"dotted-number",
		"comma-decimal",
		"bare-decimal",
		"ellipsis",
		"number-word",
		"number",
		"section-mark",
		"initial",
		"word",
		"symbol",
	}

	var got []string
	for _, r := range buildRules(unicode.IsUpper) {
		got = append(got, r.name)
	}

	if !slices.Equal(got, want) {
		t.Errorf("rule order = %v; want %v", got, want)
	}
}

func TestAbbreviationPattern(t *testing.T) {
	tests := []struct {
		entry abbreviation
		want  string
	}{
		{abbreviation{text: "d.v.s.", loose: true, optionalFinal: true}, `[Dd]\.?v\.?s\.?`},
		{abbreviation{text: "bl.a.", optionalFinal: true}, `[Bb]l\.a\.?`},
		{abbreviation{text: "St.", exactCase: true}, `St\.`},
		{abbreviation{text: "s.", exactCase: true}, `s\.`},
		{abbreviation{text: "f.Kr."}, `[Ff]\.Kr\.`},
		{abbreviation{text: "årg."}, `[Åå]rg\.`},
	}

	for _, tt := range tests {
		t.Run(tt.entry.text, func(t *testing.T) {
			if got := tt.entry.pattern(); got != tt.want {
				t.Errorf("pattern() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestAbbreviations_Unique(t *testing.T) {
	seen := make(map[string]bool, len(abbreviations))
	for _, a := range abbreviations {
		if seen[a.text] {
			t.Errorf("duplicate abbreviation %q", a.text)
		}
		seen[a.text] = true

		if !strings.HasSuffix(a.text, ".") {
			t.Errorf("abbreviation %q must be written with its final period", a.text)
		}
	}
}

func TestMatchAbbreviation(t *testing.T) {
	tests := []struct {
		src  string
		pos  int
		want int
	}{
		{src: "jf. x", pos: 0, want: 3},
		{src: "Jf. x", pos: 0, want: 3},
		{src: "dvs", pos: 0, want: 3},
		{src: "dvsen", pos: 0, want: -1},
		{src: "p.g.a. det", pos: 0, want: 6},
		{src: "pga det", pos: 0, want: 3},
		{src: "a's.", pos: 2, want: -1},
		{src: "S. 5", pos: 0, want: -1},
		{src: "dr. Hansen", pos: 0, want: 3},
		{src: "Dr. Hansen", pos: 0, want: 3},
		{src: "St. Olav", pos: 0, want: 3},
		{src: "st. Olav", pos: 0, want: -1},
		{src: "ord", pos: 0, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := matchAbbreviation(tt.src, tt.pos); got != tt.want {
				t.Errorf("matchAbbreviation(%q, %d) = %d; want %d", tt.src, tt.pos, got, tt.want)
			}
		})
	}
}

func TestMatchGroupedNumber(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{src: "10 000", want: 6},
		{src: "1 250 000 x", want: 9},
		{src: "1 250,5", want: 7},
		{src: "1 250,", want: 5},
		{src: "1000 000", want: -1},
		{src: "1 2000", want: -1},
		{src: "1 20", want: -1},
		{src: "12", want: -1},
		{src: "x", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := matchGroupedNumber(tt.src, 0); got != tt.want {
				t.Errorf("matchGroupedNumber(%q) = %d; want %d", tt.src, got, tt.want)
			}
		})
	}
}

func TestMatchSectionNumber(t *testing.T) {
	tests := []struct {
		src  string
		pos  int
		want int
	}{
		{src: "§ 2-5", pos: 3, want: 6},
		{src: "§2", pos: 2, want: 3},
		{src: "§ 3–4", pos: 3, want: 8},
		{src: "§  2", pos: 4, want: -1},
		{src: "s 2", pos: 2, want: -1},
		{src: "2", pos: 0, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := matchSectionNumber(tt.src, tt.pos); got != tt.want {
				t.Errorf("matchSectionNumber(%q, %d) = %d; want %d", tt.src, tt.pos, got, tt.want)
			}
		})
	}
}

func TestNumberMatcher(t *testing.T) {
	match := numberMatcher(unicode.IsUpper)

	tests := []struct {
		src  string
		want int
	}{
		{src: "17. mai", want: 3},
		{src: "3. Han", want: 1},
		{src: "3.", want: 2},
		{src: "3...", want: 1},
		{src: "2.5", want: 3},
		{src: "42 x", want: 2},
		{src: "x", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := match(tt.src, 0); got != tt.want {
				t.Errorf("number(%q) = %d; want %d", tt.src, got, tt.want)
			}
		})
	}
}

func TestInitialMatcher(t *testing.T) {
	match := initialMatcher(unicode.IsUpper)

	tests := []struct {
		src  string
		pos  int
		want int
	}{
		{src: "P. A.", pos: 0, want: 2},
		{src: "P. A.", pos: 3, want: 5},
		{src: "P.A.", pos: 2, want: 4},
		{src: "xA.", pos: 1, want: -1},
		{src: "p.", pos: 0, want: -1},
		{src: "A..", pos: 0, want: -1},
		{src: "A", pos: 0, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := match(tt.src, tt.pos); got != tt.want {
				t.Errorf("initial(%q, %d) = %d; want %d", tt.src, tt.pos, got, tt.want)
			}
		})
	}
}
