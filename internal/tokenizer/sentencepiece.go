package tokenizer

import (
	"errors"
	"fmt"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
)

// ErrEmptyPath is returned when NewSentencePieceTokenizer is called with an empty path.
var ErrEmptyPath = errors.New("tokenizer model path must not be empty")

// SentencePieceTokenizer splits text into the pieces of a UNIGRAM
// SentencePiece model. Pieces keep the model's word-start marker (U+2581).
type SentencePieceTokenizer struct {
	proc gosp.Sentencepiece
}

// NewSentencePieceTokenizer loads a SentencePiece model from the given path.
func NewSentencePieceTokenizer(modelPath string) (*SentencePieceTokenizer, error) {
	if modelPath == "" {
		return nil, ErrEmptyPath
	}

	proc, err := gosp.NewSentencepieceFromFile(modelPath, false)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model %q: %w", modelPath, err)
	}

	return &SentencePieceTokenizer{proc: proc}, nil
}

// Tokenize returns the model pieces for text.
func (t *SentencePieceTokenizer) Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	pieces := t.proc.Tokenize(text)

	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.Text
	}

	return out
}
