package tokenizer

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// matchFunc reports the end offset of a match starting at pos, or -1.
type matchFunc func(src string, pos int) int

// rule is one entry of the ordered rule table.
type rule struct {
	name  string
	kind  Kind
	match matchFunc
}

var (
	abbreviationRE = compileAbbreviations(abbreviations)
	abbreviationAt = anchored(abbreviationRE)
	sectionNumAt   = anchored(sectionNumRE)
	bareDecimalAt  = anchored(bareDecimalRE)

	dottedNumberRE = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+){2,}`)
	commaDecimalRE = regexp.MustCompile(`^[0-9]+,[0-9]+`)
	bareDecimalRE  = regexp.MustCompile(`^\.[0-9]+`)
	ellipsisRE     = regexp.MustCompile(`^\.{3,}`)
	numberWordRE   = regexp.MustCompile(`^[0-9]+-\pL[\pL\pM\pN_]*`)
	plainNumberRE  = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?`)
	sectionMarkRE  = regexp.MustCompile(`^§§?`)
	sectionNumRE   = regexp.MustCompile(`^[0-9]+(?:[-–][0-9]+)?`)
	wordRE         = regexp.MustCompile(`^[\pL\pM\pN_]+(?:[-.@][\pL\pM\pN_]+)*-?`)
)

// buildRules returns the rule table in priority order. upper decides which
// runes count as uppercase for the sentence-boundary and initial rules.
func buildRules(upper func(rune) bool) []rule {
	return []rule{
		{name: "abbreviation", kind: Abbreviation, match: matchAbbreviation},
		{name: "section-number", kind: Section, match: matchSectionNumber},
		{name: "grouped-number", kind: Number, match: matchGroupedNumber},
		{name: "dotted-number", kind: Number, match: anchored(dottedNumberRE)},
		{name: "comma-decimal", kind: Number, match: anchored(commaDecimalRE)},
		{name: "bare-decimal", kind: Number, match: matchBareDecimal},
		{name: "ellipsis", kind: Ellipsis, match: anchored(ellipsisRE)},
		{name: "number-word", kind: Compound, match: anchored(numberWordRE)},
		{name: "number", kind: Number, match: numberMatcher(upper)},
		{name: "section-mark", kind: Section, match: anchored(sectionMarkRE)},
		{name: "initial", kind: Initial, match: initialMatcher(upper)},
		{name: "word", kind: Word, match: anchored(wordRE)},
		{name: "symbol", kind: Symbol, match: matchRune},
	}
}

func anchored(re *regexp.Regexp) matchFunc {
	return func(src string, pos int) int {
		loc := re.FindStringIndex(src[pos:])
		if loc == nil {
			return -1
		}
		return pos + loc[1]
	}
}

func matchAbbreviation(src string, pos int) int {
	// "Jonas's." must not yield the entry "s.".
	if prev, _ := utf8.DecodeLastRuneInString(src[:pos]); prev == '\'' || prev == '’' {
		return -1
	}
	end := abbreviationAt(src, pos)
	if end < 0 {
		return -1
	}
	// An entry matched without its final period must end at a word boundary.
	if src[end-1] != '.' {
		if r, _ := utf8.DecodeRuneInString(src[end:]); isWordRune(r) {
			return -1
		}
	}
	return end
}

// matchSectionNumber matches a number or range that directly follows a
// paragraph mark, with at most one whitespace rune in between.
func matchSectionNumber(src string, pos int) int {
	before := pos
	if r, size := utf8.DecodeLastRuneInString(src[:before]); unicode.IsSpace(r) {
		before -= size
	}
	if r, _ := utf8.DecodeLastRuneInString(src[:before]); r != '§' {
		return -1
	}
	return sectionNumAt(src, pos)
}

// matchGroupedNumber matches 1-3 digits followed by groups of exactly three
// digits separated by a space character, e.g. "10 000" or "1 250 000,50".
func matchGroupedNumber(src string, pos int) int {
	lead := digitRun(src, pos)
	if lead == 0 || lead > 3 {
		return -1
	}

	end := pos + lead
	groups := 0
	for {
		r, size := utf8.DecodeRuneInString(src[end:])
		if !isGroupSeparator(r) || digitRun(src, end+size) != 3 {
			break
		}
		end += size + 3
		groups++
	}
	if groups == 0 {
		return -1
	}

	if end < len(src) && src[end] == ',' {
		if n := digitRun(src, end+1); n > 0 {
			end += 1 + n
		}
	}

	return end
}

func matchBareDecimal(src string, pos int) int {
	if r, _ := utf8.DecodeLastRuneInString(src[:pos]); isDigit(r) {
		return -1
	}
	return bareDecimalAt(src, pos)
}

// numberMatcher matches an integer or decimal and takes one trailing period
// along unless the next non-space rune after it is uppercase, which marks a
// sentence boundary.
func numberMatcher(upper func(rune) bool) matchFunc {
	match := anchored(plainNumberRE)
	return func(src string, pos int) int {
		end := match(src, pos)
		if end < 0 || end >= len(src) || src[end] != '.' {
			return end
		}
		if end+1 < len(src) && src[end+1] == '.' {
			return end
		}

		next := end + 1
		for next < len(src) {
			r, size := utf8.DecodeRuneInString(src[next:])
			if !unicode.IsSpace(r) {
				if upper(r) {
					return end
				}
				break
			}
			next += size
		}

		return end + 1
	}
}

// initialMatcher matches a single uppercase letter and a period at the start
// of the text or after whitespace or a period, so "P. A. Munch" yields P., A.
func initialMatcher(upper func(rune) bool) matchFunc {
	return func(src string, pos int) int {
		r, size := utf8.DecodeRuneInString(src[pos:])
		if !upper(r) || !unicode.IsLetter(r) {
			return -1
		}
		end := pos + size
		if end >= len(src) || src[end] != '.' {
			return -1
		}
		if end+1 < len(src) && src[end+1] == '.' {
			return -1
		}
		if pos > 0 {
			prev, _ := utf8.DecodeLastRuneInString(src[:pos])
			if prev != '.' && !unicode.IsSpace(prev) {
				return -1
			}
		}
		return end + 1
	}
}

func matchRune(src string, pos int) int {
	_, size := utf8.DecodeRuneInString(src[pos:])
	return pos + size
}

func digitRun(src string, pos int) int {
	n := 0
	for pos+n < len(src) && isDigit(rune(src[pos+n])) {
		n++
	}
	return n
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// isGroupSeparator reports whether r may separate digit groups: space,
// no-break space, thin space or narrow no-break space.
func isGroupSeparator(r rune) bool {
	switch r {
	case ' ', '\u00a0', '\u2009', '\u202f':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.M, r)
}
