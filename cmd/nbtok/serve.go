package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/example/go-nbtok/internal/server"
	"github.com/example/go-nbtok/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var persist bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the nbtok HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			tok, err := newTokenizer(cfg)
			if err != nil {
				return err
			}

			var fs server.FrequencyStore
			if persist {
				st, err := store.Open(cfg.Store.Path)
				if err != nil {
					return err
				}
				defer func() { _ = st.Close() }()

				slog.Info("frequency store opened", slog.String("store", cfg.Store.Path))
				fs = st
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, tok, fs).Start(ctx)
		},
	}

	cmd.Flags().BoolVar(&persist, "persist", false, "Record /frequencies counts in the --store database")

	return cmd
}
