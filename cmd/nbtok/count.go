package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cheggaaa/pb"
	"github.com/example/go-nbtok/internal/freq"
	"github.com/example/go-nbtok/internal/store"
	"github.com/example/go-nbtok/internal/tokenizer"
	"github.com/spf13/cobra"
)

type countOptions struct {
	Top       int
	Format    string
	Lowercase bool
	NoPunct   bool
	Normalize bool
	Progress  io.Writer // nil disables the progress bar
}

// countSummary is the JSON form of `count --format json`.
type countSummary struct {
	Tokens   int          `json:"tokens"`
	Distinct int          `json:"distinct"`
	Top      []freq.Entry `json:"top"`
}

func newCountCmd() *cobra.Command {
	var (
		text     string
		save     bool
		progress bool
		opts     countOptions
	)

	cmd := &cobra.Command{
		Use:   "count [FILE...]",
		Short: "Count token frequencies",
		Long: "Count tokens in the --text value, each FILE, or stdin.\n" +
			"With --save the counts are added to the SQLite database named by --store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if opts.Format != "table" && opts.Format != "json" {
				return errors.New("--format must be 'table' or 'json'")
			}

			inputs, err := readInputs(text, args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tok, err := newTokenizer(cfg)
			if err != nil {
				return err
			}

			opts.Normalize = cfg.Tokenizer.Normalize
			if progress {
				opts.Progress = cmd.ErrOrStderr()
			}

			counts := countInputs(tok, inputs, opts)

			if save {
				if err := saveCounts(cmd.Context(), cfg.Store.Path, counts); err != nil {
					return err
				}
			}

			return writeCounts(cmd.OutOrStdout(), counts, opts)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to count (if empty, read FILE arguments or stdin)")
	cmd.Flags().IntVar(&opts.Top, "top", 20, "Number of most frequent tokens to print (0 = all)")
	cmd.Flags().StringVar(&opts.Format, "format", "table", "Output format: table|json")
	cmd.Flags().BoolVar(&opts.Lowercase, "lower", false, "Fold tokens to lower case before counting")
	cmd.Flags().BoolVar(&opts.NoPunct, "no-punct", false, "Skip tokens made only of punctuation and symbols")
	cmd.Flags().BoolVar(&save, "save", false, "Add the counts to the --store database")
	cmd.Flags().BoolVar(&progress, "progress", false, "Show a progress bar on stderr")

	return cmd
}

func countInputs(tok tokenizer.Tokenizer, inputs []input, opts countOptions) freq.Counts {
	var freqOpts []freq.Option
	if opts.Lowercase {
		freqOpts = append(freqOpts, freq.WithLowercase())
	}
	if opts.NoPunct {
		freqOpts = append(freqOpts, freq.WithoutPunctuation())
	}

	var bar *pb.ProgressBar
	if opts.Progress != nil {
		var total int64
		for _, in := range inputs {
			total += int64(len(in.Text))
		}
		bar = pb.New64(total).SetUnits(pb.U_BYTES)
		bar.Output = opts.Progress
		bar.Start()
	}

	counts := freq.Counts{}
	for _, in := range inputs {
		counts.Merge(freq.Count(tok.Tokenize(prepare(in.Text, opts.Normalize)), freqOpts...))
		if bar != nil {
			bar.Add(len(in.Text))
		}
	}

	if bar != nil {
		bar.Finish()
	}

	return counts
}

func saveCounts(ctx context.Context, path string, counts freq.Counts) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.Add(ctx, counts); err != nil {
		return fmt.Errorf("save counts: %w", err)
	}

	tokens, distinct, err := st.Total(ctx)
	if err != nil {
		return fmt.Errorf("read store totals: %w", err)
	}

	slog.Info("counts saved",
		slog.String("store", path),
		slog.Int("added", counts.Total()),
		slog.Int("store_tokens", tokens),
		slog.Int("store_distinct", distinct),
	)
	return nil
}

func writeCounts(w io.Writer, counts freq.Counts, opts countOptions) error {
	top := counts.Top(opts.Top)

	if opts.Format == "json" {
		return json.NewEncoder(w).Encode(countSummary{
			Tokens:   counts.Total(),
			Distinct: len(counts),
			Top:      top,
		})
	}

	for _, e := range top {
		if _, err := fmt.Fprintf(w, "%8d  %s\n", e.Count, e.Token); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total: %d tokens, %d distinct\n", counts.Total(), len(counts))
	return err
}
