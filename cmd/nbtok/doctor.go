package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/example/go-nbtok/internal/config"
	"github.com/example/go-nbtok/internal/doctor"
	"github.com/example/go-nbtok/internal/store"
	"github.com/example/go-nbtok/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var checkStore bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local runtime, tokenizer and store checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := doctor.Run(doctorConfig(cfg, checkStore), out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&checkStore, "check-store", false, "Open (and create if missing) the --store database instead of only checking its directory")

	return cmd
}

func doctorConfig(cfg config.Config, checkStore bool) doctor.Config {
	dcfg := doctor.Config{
		GoVersion: func() (string, error) { return runtime.Version(), nil },
		Backend:   cfg.Tokenizer.Backend,
		ModelPath: cfg.Tokenizer.ModelPath,
		LoadModel: func(path string) error {
			_, err := tokenizer.NewSentencePieceTokenizer(path)
			return err
		},
		Tokenize:  tokenizer.Tokenize,
		StorePath: cfg.Store.Path,
	}

	if checkStore {
		dcfg.OpenStore = func(path string) error {
			st, err := store.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			return st.Ping(context.Background())
		}
	}

	return dcfg
}
