package config

import (
	"errors"
	"fmt"

	"github.com/example/go-nbtok/internal/tokenizer"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate canonicalises the tokenizer backend in place and rejects
// out-of-range server settings.
func (c *Config) Validate() error {
	backend, err := tokenizer.NormalizeBackend(c.Tokenizer.Backend)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.Tokenizer.Backend = backend

	switch {
	case c.Server.Workers < 1:
		return fmt.Errorf("%w: server.workers must be at least 1, got %d", ErrInvalidConfig, c.Server.Workers)
	case c.Server.MaxTextBytes < 1:
		return fmt.Errorf("%w: server.max_text_bytes must be positive, got %d", ErrInvalidConfig, c.Server.MaxTextBytes)
	case c.Server.RequestTimeout < 0:
		return fmt.Errorf("%w: server.request_timeout must not be negative", ErrInvalidConfig)
	case c.Server.ShutdownTimeout < 0:
		return fmt.Errorf("%w: server.shutdown_timeout must not be negative", ErrInvalidConfig)
	}

	return nil
}
