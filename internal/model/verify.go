package model

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/go-nbtok/internal/tokenizer"
)

type VerifyOptions struct {
	Path   string
	SHA256 string // empty skips the checksum
	// Probe is tokenized to check the model produces pieces.
	Probe  string
	Stdout io.Writer
}

// Verify checks the model checksum, loads it and tokenizes a probe text.
func Verify(opts VerifyOptions) error {
	if opts.Path == "" {
		return tokenizer.ErrEmptyPath
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Probe == "" {
		opts.Probe = "Det var 10 000 personer der."
	}

	if opts.SHA256 != "" {
		actual, err := FileSHA256(opts.Path)
		if err != nil {
			return err
		}
		if actual != strings.ToLower(opts.SHA256) {
			return fmt.Errorf("%w for %s: expected %s got %s", ErrChecksumMismatch, opts.Path, opts.SHA256, actual)
		}
		fmt.Fprintf(opts.Stdout, "checksum ok: %s\n", actual)
	}

	sp, err := tokenizer.NewSentencePieceTokenizer(opts.Path)
	if err != nil {
		return err
	}

	pieces := sp.Tokenize(opts.Probe)
	if len(pieces) == 0 {
		return fmt.Errorf("model %s produced no pieces for %q", opts.Path, opts.Probe)
	}
	fmt.Fprintf(opts.Stdout, "model ok: %d pieces for probe text\n", len(pieces))

	return nil
}
