package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/phrazzld/scry-progress/internal/auth"
	"github.com/phrazzld/scry-progress/internal/config"
	"github.com/phrazzld/scry-progress/internal/domain/srs"
	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/platform/postgres"
	"github.com/phrazzld/scry-progress/internal/platform/sqlite"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/store"
	"github.com/phrazzld/scry-progress/internal/syncengine"
)

// errSyncDisabled is returned by commands that need the remote store when
// no database URL is configured.
var errSyncDisabled = errors.New("remote store is not configured (set database.url)")

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Local snapshot storage. localDB is nil for the memory driver.
	localDB *sqlx.DB
	repo    store.SnapshotRepository

	// Remote store. Both are nil when synchronization is not configured.
	remoteDB *sql.DB
	remote   store.RemoteStore

	emitter  *events.InMemoryEmitter
	registry *progress.Registry
	sync     *syncengine.Manager
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := app.openLocal(); err != nil {
		return nil, err
	}

	loc, err := cfg.Progress.Location()
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	scheduler, err := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		MinEaseFactor:     cfg.Progress.MinEaseFactor,
		InitialEaseFactor: cfg.Progress.InitialEaseFactor,
		MaxInterval:       cfg.Progress.MaxInterval,
	}))
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	app.emitter = events.NewInMemoryEmitter(logger)
	app.emitter.Subscribe("", events.LogHandler(logger.With(slog.String("component", "events"))))

	app.registry = progress.NewRegistry(app.repo, progress.Options{
		Scheduler:   scheduler,
		Location:    loc,
		MaxAttempts: cfg.Progress.MaxQuizAttempts,
		Emitter:     app.emitter,
		Logger:      logger,
	})

	if cfg.Database.URL != "" {
		if err := app.openRemote(ctx); err != nil {
			app.cleanup()
			return nil, err
		}
	} else {
		logger.Info("remote store not configured, synchronization disabled")
	}

	logger.Info("application initialized",
		slog.String("local_driver", cfg.Local.Driver),
		slog.Bool("sync", app.sync != nil),
		slog.String("timezone", loc.String()))
	return app, nil
}

func (app *application) openLocal() error {
	switch app.config.Local.Driver {
	case "memory":
		app.repo = store.NewMemorySnapshotRepository()
	case "sqlite":
		db, err := sqlite.Open(app.config.Local.Path)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}
		app.localDB = db
		app.repo = sqlite.NewSnapshotStore(db, app.logger)
	default:
		return fmt.Errorf("unknown local driver %q", app.config.Local.Driver)
	}
	return nil
}

func (app *application) openRemote(ctx context.Context) error {
	db, err := postgres.Open(ctx, app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to remote store: %w", err)
	}
	app.remoteDB = db
	app.remote = postgres.NewRemoteStore(db, app.logger)

	syncCfg, err := syncengine.ConfigFrom(app.config.Sync)
	if err != nil {
		return fmt.Errorf("invalid sync configuration: %w", err)
	}
	app.sync = syncengine.NewManager(app.registry, app.remote, syncCfg, app.config.Sync.Enabled, app.logger,
		syncengine.WithEmitter(app.emitter))
	app.emitter.Subscribe(events.PrefixProgress, app.sync)
	return nil
}

// newTokenService builds the bearer token service from the auth configuration.
func newTokenService(cfg config.AuthConfig) (*auth.TokenService, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	return auth.NewTokenService(cfg)
}

// syncer returns the sync manager, or an error when synchronization is
// not configured.
func (app *application) syncer() (*syncengine.Manager, error) {
	if app.sync == nil {
		return nil, errSyncDisabled
	}
	return app.sync, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.sync != nil {
		app.sync.StopAll()
	}
	if app.remoteDB != nil {
		if err := app.remoteDB.Close(); err != nil {
			app.logger.Error("error closing remote database", slog.String("error", err.Error()))
		}
	}
	if app.localDB != nil {
		if err := app.localDB.Close(); err != nil {
			app.logger.Error("error closing local database", slog.String("error", err.Error()))
		}
	}
	open := 0
	if app.registry != nil {
		open = len(app.registry.Loaded())
	}
	app.logger.Debug("application resources released", slog.Int("open_stores", open))
}
