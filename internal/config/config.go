// Package config loads the CLI and dev-server settings from the
// environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds every environment-tunable setting. Zero values fall back to
// the defaults tagged below.
type Config struct {
	// APIBaseURL is the root of the intranet backend, e.g.
	// http://intranet.local:5000.
	APIBaseURL string `env:"INTRANET_API_URL" envDefault:"http://localhost:5000"`

	// RequestTimeout bounds each backend call.
	RequestTimeout time.Duration `env:"INTRANET_REQUEST_TIMEOUT" envDefault:"15s"`

	// StoragePath overrides where the session file lives. Empty means
	// ~/.intranet/session.json.
	StoragePath string `env:"INTRANET_STORAGE_PATH"`

	// SessionTTL overrides the client-side session lifetime.
	SessionTTL time.Duration `env:"INTRANET_SESSION_TTL" envDefault:"24h"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `env:"INTRANET_LOG_LEVEL" envDefault:"info"`

	// ListenAddr is the dev stub server's bind address.
	ListenAddr string `env:"INTRANET_LISTEN_ADDR" envDefault:":5000"`

	// TokenSecret signs the dev stub server's tokens.
	TokenSecret string `env:"INTRANET_TOKEN_SECRET" envDefault:"dev-secret"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] parsing environment")
	}
	return cfg, nil
}
