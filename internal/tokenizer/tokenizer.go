// Package tokenizer splits Norwegian text into lexical tokens.
//
// The primary implementation, Norwegian, is a single left-to-right scan over
// an ordered rule table: abbreviations, numeric expressions, paragraph
// references, words, and a catch-all that accepts any single non-space rune.
// The first rule that matches at the scan position wins, so the output is
// deterministic and every non-space rune of the input lands in exactly one
// token.
//
// A SentencePiece backend is available behind the same interface for callers
// that want model vocabulary pieces instead of lexical tokens.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted by New.
const (
	BackendNorwegian     = "nb"
	BackendSentencePiece = "sentencepiece"
)

var (
	// ErrInvalidArgument is returned when input is not valid UTF-8 text.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownBackend is returned by NormalizeBackend and New for unsupported names.
	ErrUnknownBackend = errors.New("unknown tokenizer backend")
)

// Tokenizer turns text into an ordered sequence of token strings.
type Tokenizer interface {
	Tokenize(text string) []string
}

// NormalizeBackend canonicalises a backend name. An empty name selects the
// Norwegian tokenizer.
func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	switch backend {
	case "", BackendNorwegian, "norwegian", "nbtokenizer":
		return BackendNorwegian, nil
	case BackendSentencePiece, "spm":
		return BackendSentencePiece, nil
	default:
		return "", fmt.Errorf("%w %q (expected %s|%s)",
			ErrUnknownBackend, raw, BackendNorwegian, BackendSentencePiece)
	}
}

// New returns the tokenizer for backend. modelPath is only used by the
// SentencePiece backend.
func New(backend, modelPath string, opts ...Option) (Tokenizer, error) {
	name, err := NormalizeBackend(backend)
	if err != nil {
		return nil, err
	}

	switch name {
	case BackendSentencePiece:
		sp, err := NewSentencePieceTokenizer(modelPath)
		if err != nil {
			return nil, err
		}
		return sp, nil
	default:
		if len(opts) == 0 {
			return Default(), nil
		}
		return NewNorwegian(opts...), nil
	}
}
