package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/example/go-nbtok/internal/bench"
	"github.com/example/go-nbtok/internal/doctor"
	textpkg "github.com/example/go-nbtok/internal/text"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	Runs       int
	Format     string
	MinTPS     float64
	CPUProfile string
}

func newBenchCmd() *cobra.Command {
	var (
		text   string
		repeat int
		opts   benchOptions
	)

	cmd := &cobra.Command{
		Use:   "bench [FILE]",
		Short: "Benchmark tokenizer throughput",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if opts.Runs < 1 {
				return errors.New("--runs must be at least 1")
			}
			if repeat < 1 {
				return errors.New("--repeat must be at least 1")
			}
			if opts.Format != "table" && opts.Format != "json" {
				return errors.New("--format must be 'table' or 'json'")
			}

			corpus := doctor.Canary
			if text != "" || len(args) > 0 {
				inputs, err := readInputs(text, args, cmd.InOrStdin())
				if err != nil {
					return err
				}
				corpus = inputs[0].Text
			}
			corpus, err = textpkg.Normalize(corpus)
			if err != nil {
				return fmt.Errorf("bench input: %w", err)
			}
			corpus = strings.Repeat(corpus+"\n", repeat)

			tok, err := newTokenizer(cfg)
			if err != nil {
				return err
			}

			stopProfile, err := startCPUProfile(opts.CPUProfile)
			if err != nil {
				return err
			}
			runs := bench.Run(tok, corpus, opts.Runs)
			if err := stopProfile(); err != nil {
				return err
			}

			return reportBench(cmd.OutOrStdout(), runs, opts)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to tokenize for each run (default: built-in sample)")
	cmd.Flags().IntVar(&repeat, "repeat", 1000, "Concatenate the input this many times")
	cmd.Flags().IntVar(&opts.Runs, "runs", 5, "Number of tokenize runs")
	cmd.Flags().StringVar(&opts.Format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&opts.MinTPS, "min-tps", 0, "Exit non-zero if mean tokens/s is below this value (0 = disabled)")
	cmd.Flags().StringVar(&opts.CPUProfile, "cpuprofile", "", "Write a CPU profile of the runs to this file")

	return cmd
}

func reportBench(w io.Writer, runs []bench.RunResult, opts benchOptions) error {
	stats := bench.ComputeStats(bench.Durations(runs, true))

	switch opts.Format {
	case "json":
		bench.FormatJSON(runs, stats, w)
	default:
		bench.FormatTable(runs, stats, w)
	}

	return bench.CheckThroughputThreshold(bench.MeanThroughput(runs), opts.MinTPS)
}

// startCPUProfile starts profiling into path. The returned func stops the
// profile and closes the file; it is a no-op when path is empty.
func startCPUProfile(path string) (func() error, error) {
	if path == "" {
		return func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile: %w", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}

	return func() error {
		pprof.StopCPUProfile()
		return f.Close()
	}, nil
}
