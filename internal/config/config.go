// Package config loads nbtok settings from defaults, an optional config file,
// NBTOK_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
}

type TokenizerConfig struct {
	Backend   string `mapstructure:"backend"`
	ModelPath string `mapstructure:"model_path"`
	Normalize bool   `mapstructure:"normalize"`
	Timed     bool   `mapstructure:"timed"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// EnvPrefix is prepended to every environment variable, e.g.
// NBTOK_SERVER_WORKERS for server.workers.
const EnvPrefix = "NBTOK"

// flagKeys maps each flag to the config key it overrides.
var flagKeys = map[string]string{
	"log-level":        "log_level",
	"backend":          "tokenizer.backend",
	"model-path":       "tokenizer.model_path",
	"normalize":        "tokenizer.normalize",
	"timed":            "tokenizer.timed",
	"listen-addr":      "server.listen_addr",
	"workers":          "server.workers",
	"max-text-bytes":   "server.max_text_bytes",
	"request-timeout":  "server.request_timeout",
	"shutdown-timeout": "server.shutdown_timeout",
	"store":            "store.path",
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Tokenizer: TokenizerConfig{
			Backend:   "nb",
			ModelPath: "models/tokenizer.model",
			Normalize: true,
			Timed:     false,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxTextBytes:    1 << 20,
			RequestTimeout:  30,
			ShutdownTimeout: 10,
		},
		Store: StoreConfig{
			Path: "nbtok.db",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("backend", defaults.Tokenizer.Backend, "Tokenizer backend (nb|sentencepiece)")
	fs.String("model-path", defaults.Tokenizer.ModelPath, "SentencePiece model path for --backend=sentencepiece")
	fs.Bool("normalize", defaults.Tokenizer.Normalize, "Normalize line endings and Unicode (NFC) before tokenizing")
	fs.Bool("timed", defaults.Tokenizer.Timed, "Log tokenization time for every call")
	fs.String("listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent tokenize requests")
	fs.Int("max-text-bytes", defaults.Server.MaxTextBytes, "Max request text size in bytes")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
	fs.String("store", defaults.Store.Path, "SQLite database for token counts")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)

	if opts.Cmd != nil {
		err := bindFlags(v, opts.Cmd.Flags())
		if err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)

		err := v.ReadInConfig()
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("nbtok")
		v.AddConfigPath(".")

		err := v.ReadInConfig()
		if err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindFlags binds each known flag present in fs to its config key. Flags the
// command does not define are skipped.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}

		err := v.BindPFlag(key, f)
		if err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("tokenizer.backend", c.Tokenizer.Backend)
	v.SetDefault("tokenizer.model_path", c.Tokenizer.ModelPath)
	v.SetDefault("tokenizer.normalize", c.Tokenizer.Normalize)
	v.SetDefault("tokenizer.timed", c.Tokenizer.Timed)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("store.path", c.Store.Path)
}
