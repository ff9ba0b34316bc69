// Package freq counts token frequencies.
package freq

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is one token and how often it occurred.
type Entry struct {
	Token string `json:"token" db:"token"`
	Count int    `json:"count" db:"count"`
}

// Counts maps a token to its number of occurrences.
type Counts map[string]int

type options struct {
	lower     bool
	skipPunct bool
}

// Option configures Count.
type Option func(*options)

// WithLowercase folds tokens to lower case (Norwegian rules) before counting.
func WithLowercase() Option {
	return func(o *options) { o.lower = true }
}

// WithoutPunctuation drops tokens made only of punctuation and symbols.
func WithoutPunctuation() Option {
	return func(o *options) { o.skipPunct = true }
}

// Count tallies tokens.
func Count(tokens []string, opts ...Option) Counts {
	c := make(Counts, len(tokens)/2+1)
	c.Add(tokens, opts...)

	return c
}

// Add tallies tokens into c.
func (c Counts) Add(tokens []string, opts ...Option) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	var lower cases.Caser
	if o.lower {
		lower = cases.Lower(language.Norwegian)
	}

	for _, tok := range tokens {
		if o.skipPunct && isPunctuation(tok) {
			continue
		}

		if o.lower {
			tok = lower.String(tok)
		}

		c[tok]++
	}
}

// Merge adds every count in other to c.
func (c Counts) Merge(other Counts) {
	for tok, n := range other {
		c[tok] += n
	}
}

// Total is the sum of all counts.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}

	return total
}

// Entries returns every count ordered by count descending, then token
// ascending.
func (c Counts) Entries() []Entry {
	out := make([]Entry, 0, len(c))
	for tok, n := range c {
		out = append(out, Entry{Token: tok, Count: n})
	}

	slices.SortFunc(out, Compare)

	return out
}

// Top returns the n most frequent entries. n <= 0 returns all of them.
func (c Counts) Top(n int) []Entry {
	entries := c.Entries()
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}

	return entries
}

// Compare orders entries by count descending, then token ascending.
func Compare(a, b Entry) int {
	if r := cmp.Compare(b.Count, a.Count); r != 0 {
		return r
	}

	return strings.Compare(a.Token, b.Token)
}

func isPunctuation(tok string) bool {
	for _, r := range tok {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}

	return tok != ""
}
