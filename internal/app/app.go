// Package app wires the pieces both front-ends share: the session storage,
// the route table and menu, the view registry and the platform API client.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/khutwa-dev/khutwa/internal/apiclient"
	"github.com/khutwa-dev/khutwa/internal/config"
	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/nav"
	"github.com/khutwa-dev/khutwa/internal/session"
	"github.com/khutwa-dev/khutwa/internal/storage"
	"github.com/khutwa-dev/khutwa/internal/views"
)

// App is the shared core of a console process
type App struct {
	Config   *config.Config
	Backend  storage.Storage
	Sessions *session.Store
	Table    *guard.Table
	Menu     nav.Menu
	API      *apiclient.Client
	Views    *views.Registry
	Logger   zerolog.Logger
}

// Open connects the session storage and loads the route table and menu
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	table, err := guard.LoadTable(cfg.Routes.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load route table: %w", err)
	}

	menu, err := nav.LoadMenu(cfg.Routes.MenuFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	if err := menu.Validate(table); err != nil {
		return nil, err
	}

	backend, err := storage.Open(ctx, storage.Options{
		Backend:      cfg.Storage.Backend,
		Dir:          cfg.Storage.Dir,
		RedisAddress: cfg.Redis.Address,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	return New(cfg, backend, table, menu, logger), nil
}

// New assembles an App around an already opened backend
func New(cfg *config.Config, backend storage.Storage, table *guard.Table, menu nav.Menu, logger zerolog.Logger) *App {
	sessions := session.NewStore(backend, logger)

	timeout := cfg.API.Timeout
	api := apiclient.New(cfg.API.URL, sessions,
		apiclient.WithHTTPClient(&http.Client{Timeout: timeout}),
		apiclient.WithLogger(logger),
	)

	return &App{
		Config:   cfg,
		Backend:  backend,
		Sessions: sessions,
		Table:    table,
		Menu:     menu,
		API:      api,
		Views:    views.NewRegistry(),
		Logger:   logger,
	}
}

// NewShell opens a navigation shell on the shared session
func (a *App) NewShell() *nav.Shell {
	return nav.NewShell(a.Sessions, a.Table, a.Menu, a.Logger)
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Backend.Close()
}
