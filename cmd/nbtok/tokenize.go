package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	textpkg "github.com/example/go-nbtok/internal/text"
	"github.com/example/go-nbtok/internal/tokenizer"
	"github.com/spf13/cobra"
)

type timedTokenizer interface {
	TokenizeTimed(text string) []string
}

type offsetTokenizer interface {
	All(text string) iter.Seq[tokenizer.Token]
}

type tokenizeOptions struct {
	Format    string
	Offsets   bool
	Sentences bool
	MaxTokens int
	Timed     bool
	Normalize bool
}

// tokenizeOutput is one JSON line of `tokenize --format json`.
type tokenizeOutput struct {
	Source string `json:"source"`
	tokenizer.Tokens
	Sentences [][]string `json:"sentences,omitempty"`
}

func newTokenizeCmd() *cobra.Command {
	var (
		text string
		opts tokenizeOptions
	)

	cmd := &cobra.Command{
		Use:   "tokenize [FILE...]",
		Short: "Split text into tokens, one per line",
		Long: "Tokenize the --text value, each FILE, or stdin when no FILE is given.\n" +
			"Tokens are printed one per line in input order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if err := validateTokenizeOptions(opts); err != nil {
				return err
			}

			inputs, err := readInputs(text, args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tok, err := newTokenizer(cfg)
			if err != nil {
				return err
			}

			opts.Timed = cfg.Tokenizer.Timed
			opts.Normalize = cfg.Tokenizer.Normalize

			return writeTokens(cmd.OutOrStdout(), tok, inputs, opts)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to tokenize (if empty, read FILE arguments or stdin)")
	cmd.Flags().StringVar(&opts.Format, "format", "lines", "Output format: lines|json")
	cmd.Flags().BoolVar(&opts.Offsets, "offsets", false, "Print start, end, kind and token separated by tabs")
	cmd.Flags().BoolVar(&opts.Sentences, "sentences", false, "Separate sentences with a blank line")
	cmd.Flags().IntVar(&opts.MaxTokens, "max-tokens", 0, "Pack sentences into groups of at most this many tokens (requires --sentences)")

	return cmd
}

func validateTokenizeOptions(opts tokenizeOptions) error {
	switch {
	case opts.Format != "lines" && opts.Format != "json":
		return errors.New("--format must be 'lines' or 'json'")
	case opts.Offsets && opts.Sentences:
		return errors.New("--offsets and --sentences are mutually exclusive")
	case opts.Offsets && opts.Format == "json":
		return errors.New("--offsets is only supported with --format lines")
	case opts.MaxTokens < 0:
		return errors.New("--max-tokens must not be negative")
	case opts.MaxTokens > 0 && !opts.Sentences:
		return errors.New("--max-tokens requires --sentences")
	}
	return nil
}

func writeTokens(w io.Writer, tok tokenizer.Tokenizer, inputs []input, opts tokenizeOptions) error {
	enc := json.NewEncoder(w)

	for _, in := range inputs {
		s := prepare(in.Text, opts.Normalize)

		if opts.Offsets {
			ot, ok := tok.(offsetTokenizer)
			if !ok {
				return fmt.Errorf("--offsets requires the %s backend", tokenizer.BackendNorwegian)
			}
			if err := writeOffsets(w, ot, s); err != nil {
				return err
			}
			continue
		}

		tokens := tokenizeWith(tok, s, opts.Timed)

		var groups [][]string
		if opts.Sentences {
			groups = textpkg.Sentences(tokens)
			if opts.MaxTokens > 0 {
				groups = textpkg.Batch(groups, opts.MaxTokens)
			}
		}

		if opts.Format == "json" {
			out := tokenizeOutput{Source: in.Name, Tokens: tokenizer.TokensOf(tokens), Sentences: groups}
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode tokens: %w", err)
			}
			continue
		}

		if !opts.Sentences {
			groups = [][]string{tokens}
		}
		if err := writeGroups(w, groups); err != nil {
			return err
		}
	}

	return nil
}

func tokenizeWith(tok tokenizer.Tokenizer, s string, timed bool) []string {
	if tt, ok := tok.(timedTokenizer); ok && timed {
		return tt.TokenizeTimed(s)
	}
	return tok.Tokenize(s)
}

func writeOffsets(w io.Writer, tok offsetTokenizer, s string) error {
	for t := range tok.All(s) {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", t.Start, t.End, t.Kind, t.Text); err != nil {
			return err
		}
	}
	return nil
}

// writeGroups prints one token per line with a blank line between groups.
func writeGroups(w io.Writer, groups [][]string) error {
	for i, group := range groups {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		for _, tok := range group {
			if _, err := fmt.Fprintln(w, tok); err != nil {
				return err
			}
		}
	}
	return nil
}
