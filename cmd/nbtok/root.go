package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/example/go-nbtok/internal/config"
	"github.com/example/go-nbtok/internal/server"
	"github.com/example/go-nbtok/internal/tokenizer"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "nbtok",
		Short:         "Norwegian tokenizer toolkit",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newTokenizeCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newModelCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// Load canonicalises the backend, so a loaded config never has an empty one.
func requireConfig() (config.Config, error) {
	if activeCfg.Tokenizer.Backend == "" {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return activeCfg, nil
}

// newTokenizer builds the configured backend. Timed calls log at info so
// they show up with the default log level.
func newTokenizer(cfg config.Config) (tokenizer.Tokenizer, error) {
	var opts []tokenizer.Option
	if cfg.Tokenizer.Timed {
		opts = append(opts, tokenizer.WithTimingLevel(slog.LevelInfo))
	}
	return tokenizer.New(cfg.Tokenizer.Backend, cfg.Tokenizer.ModelPath, opts...)
}
