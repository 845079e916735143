// Package app wires the client collaborators together. The container is built
// once at startup and passed to whoever needs a dependency.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/and161185/itemsync/internal/api"
	"github.com/and161185/itemsync/internal/config"
	"github.com/and161185/itemsync/internal/prefs"
	"github.com/and161185/itemsync/internal/secret"
	"github.com/and161185/itemsync/internal/store/sqlite"
	"github.com/and161185/itemsync/internal/viewmodel"
)

// DBFile is the name of the local database inside the data directory.
const DBFile = "itemsync.db"

// Container holds every client dependency.
type Container struct {
	Config   *config.Client
	Log      *zap.Logger
	DB       *sqlite.DB
	Secrets  secret.Store
	API      *api.Client
	Settings *prefs.Settings
	Items    *viewmodel.ItemList
}

// Option customizes New.
type Option func(*options)

type options struct {
	http api.Doer
}

// WithHTTPClient replaces the HTTP client of the API engine.
func WithHTTPClient(d api.Doer) Option { return func(o *options) { o.http = d } }

// New opens the local database and the secret vault, restores the saved
// session and builds the API client and the item list.
func New(ctx context.Context, cfg *config.Client, log *zap.Logger, opts ...Option) (*Container, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := options{http: &http.Client{Timeout: cfg.Timeout}}
	for _, fn := range opts {
		fn(&o)
	}

	secrets, err := secret.OpenFile(cfg.DataDir, cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("open secret store: %w", err)
	}

	db, err := sqlite.Open(ctx, filepath.Join(cfg.DataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	engine := api.NewEngine(cfg.BaseURL, api.WithHTTPClient(o.http), api.WithLogger(log.Named("http")))
	client := api.NewClient(engine, secrets, log.Named("auth"))
	if err := client.Restore(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	settings := prefs.New(db.Preferences())
	items := viewmodel.NewItemList(client, db.Items(),
		viewmodel.WithLogger(log.Named("items")),
		viewmodel.WithSettings(settings),
	)

	return &Container{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Secrets:  secrets,
		API:      client,
		Settings: settings,
		Items:    items,
	}, nil
}

// Close releases the local database and flushes the logger.
func (c *Container) Close() error {
	err := c.DB.Close()
	_ = c.Log.Sync()
	return err
}
