// Package text prepares raw input for tokenization and regroups token
// streams into sentences.
package text

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Clean normalizes line endings to \n and composes the text to Unicode NFC,
// so "a" + U+030A tokenizes the same as "å". Whitespace is left in place.
func Clean(s string) string {
	// CRLF → LF, then bare CR → LF.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	return norm.NFC.String(s)
}

// Normalize is Clean followed by trimming surrounding whitespace. It rejects
// empty or whitespace-only input.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(Clean(s))

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}
