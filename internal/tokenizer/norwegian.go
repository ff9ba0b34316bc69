package tokenizer

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// Norwegian is the rule-cascade tokenizer for Norwegian text. A Norwegian is
// immutable after construction and safe for concurrent use.
type Norwegian struct {
	rules []rule
	log   *slog.Logger
	level slog.Level
}

type options struct {
	upper  func(rune) bool
	logger *slog.Logger
	level  slog.Level
}

// Option configures a Norwegian tokenizer.
type Option func(*options)

// WithUpper replaces the uppercase test used by the sentence-boundary rule
// for numbers and by the initial rule. The default is unicode.IsUpper.
func WithUpper(fn func(rune) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.upper = fn
		}
	}
}

// WithLogger sets the logger TokenizeTimed reports to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimingLevel sets the level TokenizeTimed logs at (default debug).
func WithTimingLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// NewNorwegian builds a tokenizer from the rule table.
func NewNorwegian(opts ...Option) *Norwegian {
	o := options{upper: unicode.IsUpper, level: slog.LevelDebug}
	for _, fn := range opts {
		fn(&o)
	}

	return &Norwegian{
		rules: buildRules(o.upper),
		log:   o.logger,
		level: o.level,
	}
}

// Default returns the shared tokenizer with default options.
var Default = sync.OnceValue(func() *Norwegian {
	return NewNorwegian()
})

// Tokenize splits text with the default tokenizer.
func Tokenize(text string) []string {
	return Default().Tokenize(text)
}

// TokenizeTimed is Tokenize with elapsed time reported to slog.Default.
func TokenizeTimed(text string) []string {
	return Default().TokenizeTimed(text)
}

// TokenizeBytes validates b as UTF-8 text and tokenizes it with the default
// tokenizer.
func TokenizeBytes(b []byte) ([]string, error) {
	return Default().TokenizeBytes(b)
}

// Tokenize returns the tokens of text in order of appearance. Empty or
// all-whitespace input yields an empty, non-nil slice.
func (n *Norwegian) Tokenize(text string) []string {
	out := make([]string, 0, len(text)/5+1)
	for tok := range n.All(text) {
		out = append(out, tok.Text)
	}
	return out
}

// TokenizeBytes is Tokenize for raw input. It rejects invalid UTF-8 with
// ErrInvalidArgument instead of tokenizing replacement bytes.
func (n *Norwegian) TokenizeBytes(b []byte) ([]string, error) {
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", ErrInvalidArgument)
	}
	return n.Tokenize(string(b)), nil
}

// TokenizeTimed returns exactly what Tokenize returns and logs how long the
// scan took.
func (n *Norwegian) TokenizeTimed(text string) []string {
	start := time.Now()
	tokens := n.Tokenize(text)
	elapsed := time.Since(start)

	logger := n.log
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), n.level, "tokenize complete",
		slog.Int("text_len", len(text)),
		slog.Int("tokens", len(tokens)),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Duration("duration", elapsed),
	)

	return tokens
}

// NewTokens tokenizes text into the Tokens value object.
func (n *Norwegian) NewTokens(text string) Tokens {
	return TokensOf(n.Tokenize(text))
}

// All returns a lazy sequence of tokens with offsets. The sequence can be
// ranged over any number of times.
func (n *Norwegian) All(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		pos := 0
		for pos < len(text) {
			r, size := utf8.DecodeRuneInString(text[pos:])
			if unicode.IsSpace(r) {
				pos += size
				continue
			}

			tok := n.next(text, pos)
			if !yield(tok) {
				return
			}
			pos = tok.End
		}
	}
}

// Strings is All without the offsets.
func (n *Norwegian) Strings(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for tok := range n.All(text) {
			if !yield(tok.Text) {
				return
			}
		}
	}
}

// next applies the rules in order at pos; the first rule that consumes at
// least one byte wins. The final rule accepts any rune, so next always
// returns a non-empty token.
func (n *Norwegian) next(text string, pos int) Token {
	for _, r := range n.rules {
		if end := r.match(text, pos); end > pos {
			return Token{Text: text[pos:end], Start: pos, End: end, Kind: r.kind}
		}
	}
	end := matchRune(text, pos)
	return Token{Text: text[pos:end], Start: pos, End: end, Kind: Symbol}
}
