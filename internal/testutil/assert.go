package testutil

import (
	"strings"
	"testing"
	"unicode"
)

// AssertTokensCover checks that tokens occur in text in order and that only
// whitespace lies between, before and after them.
func AssertTokensCover(tb testing.TB, text string, tokens []string) {
	tb.Helper()

	rest := text
	for i, tok := range tokens {
		if tok == "" {
			tb.Fatalf("token %d is empty", i)
		}

		trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
		if !strings.HasPrefix(trimmed, tok) {
			tb.Fatalf("token %d %q does not continue the text at %q", i, tok, head(trimmed))
		}

		rest = trimmed[len(tok):]
	}

	if strings.TrimSpace(rest) != "" {
		tb.Fatalf("text %q left untokenized", head(rest))
	}
}

func head(s string) string {
	const limit = 24
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
