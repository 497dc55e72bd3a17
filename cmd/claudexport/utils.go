package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/elee1766/claudexport/src/app"
	"github.com/elee1766/claudexport/src/config"
	"github.com/elee1766/claudexport/src/credentials"
)

// keyringOpener is swapped in tests.
var keyringOpener = credentials.Open

// loadConfig loads the configuration from the standard locations, layering path on top when set
func loadConfig(path string) (*config.Config, []config.ConfigLocation, error) {
	precedence := config.GetConfigPaths()
	precedence.ExplicitConfig = path

	loader := config.NewLoader(precedence)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader.Loaded(), nil
}

// overrideConfigFromCLI overrides configuration values with CLI flags
func overrideConfigFromCLI(cfg *config.Config, cli *CLI) error {
	if cli.SessionKey != "" {
		cfg.API.SessionKey = cli.SessionKey
	}
	if cli.OrgID != "" {
		cfg.API.OrgID = cli.OrgID
	}
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	return config.NewValidator().Validate(cfg)
}

// resolveSessionKey prefers configuration, then the configured environment variable, then the keyring
func resolveSessionKey(cfg *config.Config, logger *slog.Logger) (string, error) {
	if key := cfg.API.ResolveSessionKey(); key != "" {
		return key, nil
	}
	store, err := keyringOpener()
	if err != nil {
		logger.Debug("keyring unavailable", "error", err)
		return "", errNoSessionKey
	}
	key, err := store.SessionKey()
	if errors.Is(err, credentials.ErrNotStored) {
		return "", errNoSessionKey
	}
	if err != nil {
		return "", err
	}
	return key, nil
}

var errNoSessionKey = fmt.Errorf("%w: run `claudexport auth login` or set %s", credentials.ErrNotStored, config.DefaultSessionKeyEnvVar)

// setup loads configuration and creates the logger
func setup(cli *CLI) (*config.Config, *slog.Logger, error) {
	cfg, _, err := loadConfig(cli.Config)
	if err != nil {
		return nil, nil, err
	}
	if err := overrideConfigFromCLI(cfg, cli); err != nil {
		return nil, nil, err
	}
	return cfg, createCLILogger(cfg.Logging.Level, cfg.Logging.Format), nil
}

// newApp creates an authenticated application from CLI state. Command specific overrides run
// before any service is created.
func newApp(cli *CLI, overrides ...func(*config.Config) error) (*app.App, error) {
	cfg, logger, err := setup(cli)
	if err != nil {
		return nil, err
	}
	for _, apply := range overrides {
		if err := apply(cfg); err != nil {
			return nil, err
		}
	}
	key, err := resolveSessionKey(cfg, logger)
	if err != nil {
		return nil, err
	}
	return app.New(app.Options{
		Config:     cfg,
		SessionKey: key,
		Logger:     logger,
	})
}

// newOfflineApp creates an application for commands that never reach the API
func newOfflineApp(cfg *config.Config, logger *slog.Logger) (*app.App, error) {
	return app.New(app.Options{Config: cfg, Logger: logger})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
