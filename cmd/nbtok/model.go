package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/example/go-nbtok/internal/model"
	"github.com/spf13/cobra"
)

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "SentencePiece model download and verification",
	}

	cmd.AddCommand(newModelDownloadCmd())
	cmd.AddCommand(newModelVerifyCmd())
	return cmd
}

// resolveSource merges a pinned source with explicit --url/--sha256 values.
func resolveSource(name, url, sum string) (model.Source, error) {
	if url != "" {
		return model.Source{URL: url, SHA256: sum}, nil
	}
	if sum != "" {
		return model.Source{}, errors.New("--sha256 requires --url")
	}
	return model.PinnedSource(name)
}

func newModelDownloadCmd() *cobra.Command {
	var (
		source   string
		url      string
		sum      string
		out      string
		token    string
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a SentencePiece tokenizer model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			src, err := resolveSource(source, url, sum)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Tokenizer.ModelPath
			}
			if token == "" {
				token = os.Getenv("HF_TOKEN")
			}

			opts := model.DownloadOptions{
				URL:     src.URL,
				SHA256:  src.SHA256,
				OutPath: out,
				Token:   token,
				Stdout:  cmd.OutOrStdout(),
			}
			if progress {
				opts.Progress = cmd.ErrOrStderr()
			}

			if _, err := model.Download(cmd.Context(), opts); err != nil {
				return fmt.Errorf("model download failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", model.DefaultSource, "Pinned model source")
	cmd.Flags().StringVar(&url, "url", "", "Download from this URL instead of a pinned source")
	cmd.Flags().StringVar(&sum, "sha256", "", "Expected SHA-256 of --url (empty skips verification)")
	cmd.Flags().StringVar(&out, "out", "", "Output path (default: --model-path)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (falls back to HF_TOKEN env var)")
	cmd.Flags().BoolVar(&progress, "progress", true, "Show a progress bar on stderr")

	return cmd
}

func newModelVerifyCmd() *cobra.Command {
	var (
		source string
		sum    string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the checksum of --model-path and load it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if sum == "" && source != "" {
				src, err := model.PinnedSource(source)
				if err != nil {
					return err
				}
				sum = src.SHA256
			}

			err = model.Verify(model.VerifyOptions{
				Path:   cfg.Tokenizer.ModelPath,
				SHA256: sum,
				Stdout: cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("model verify failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Compare against the checksum of this pinned source")
	cmd.Flags().StringVar(&sum, "sha256", "", "Expected SHA-256 (overrides --source)")

	return cmd
}
