package main

import (
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-intranet-client/apiclient"
	"github.com/jrsteele09/go-intranet-client/internal/config"
	"github.com/jrsteele09/go-intranet-client/session"
	"github.com/jrsteele09/go-intranet-client/storage/filestore"
)

// environment wires the session store and its collaborators from the
// process environment. Every command builds one and closes it on exit.
type environment struct {
	cfg     *config.Config
	log     zerolog.Logger
	api     *apiclient.Client
	durable *filestore.Store
	store   *session.Store
}

func setup() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	api, err := apiclient.New(
		cfg.APIBaseURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		apiclient.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	path := cfg.StoragePath
	if path == "" {
		if path, err = filestore.DefaultPath(); err != nil {
			return nil, err
		}
	}
	durable, err := filestore.New(path, filestore.WithLogger(log))
	if err != nil {
		return nil, errors.Wrap(err, "opening session storage")
	}

	store, err := session.New(api, durable,
		session.WithLogger(log),
		session.WithSessionTTL(cfg.SessionTTL),
	)
	if err != nil {
		durable.Close() // nolint: errcheck
		return nil, err
	}

	return &environment{cfg: cfg, log: log, api: api, durable: durable, store: store}, nil
}

func (e *environment) close() {
	e.store.Close()
	e.durable.Close() // nolint: errcheck
}
