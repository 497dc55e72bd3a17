// Package app wires the API client, selection, exporter, sinks and history store together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/elee1766/claudexport/src/claudeapi"
	"github.com/elee1766/claudexport/src/config"
	"github.com/elee1766/claudexport/src/render"
	"github.com/elee1766/claudexport/src/storage"
)

// App represents the main application with all services
type App struct {
	Client   *claudeapi.Client
	Store    *storage.DB
	Renderer *render.Renderer
	Config   *config.Config
	Logger   *slog.Logger

	fs afero.Fs
}

// Options holds what is needed to create a new App instance
type Options struct {
	Config     *config.Config
	SessionKey string
	Logger     *slog.Logger
	// Fs receives exported files. Defaults to the OS filesystem.
	Fs afero.Fs
}

// New creates a new App instance with all services initialized
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	var store *storage.DB
	if !cfg.Storage.Disabled {
		var err error
		store, err = storage.Open(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}

	client := claudeapi.NewClient(claudeapi.Config{
		SessionKey: opts.SessionKey,
		OrgID:      cfg.API.OrgID,
		BaseURL:    cfg.API.BaseURL,
		Logger:     logger,
		Timeout:    cfg.API.Timeout,
		RetryCount: cfg.API.RetryCount,
		RetryDelay: cfg.API.RetryDelay,
		CacheTTL:   cfg.API.CacheTTL,
	})

	renderer := render.New(render.Options{
		IncludeMetadata:  cfg.Export.IncludeArtifactMetadata,
		ConvertHTML:      cfg.Export.ConvertHTMLArtifacts,
		ShowVersionDiffs: cfg.Export.ShowVersionDiffs,
	}, logger)

	return &App{
		Client:   client,
		Store:    store,
		Renderer: renderer,
		Config:   cfg,
		Logger:   logger,
		fs:       fs,
	}, nil
}

// Ready performs the API handshake and returns the organization id.
func (a *App) Ready(ctx context.Context) (string, error) {
	return a.Client.Bootstrap(ctx)
}

// History returns the most recent export runs, newest first.
func (a *App) History(ctx context.Context, limit int) ([]storage.ExportRun, error) {
	if a.Store == nil {
		return nil, ErrHistoryDisabled
	}
	return storage.ListRuns(ctx, a.Store.DB(), limit)
}

// RunItems returns the conversations recorded for a run.
func (a *App) RunItems(ctx context.Context, runID string) ([]storage.ExportedItem, error) {
	if a.Store == nil {
		return nil, ErrHistoryDisabled
	}
	return storage.ListRunItems(ctx, a.Store.DB(), runID)
}

// Close closes all resources held by the app
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
