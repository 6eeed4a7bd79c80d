package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/backend/htmlsite"
	"github.com/runnerr0/tvguide/internal/backend/xmltvfile"
	"github.com/runnerr0/tvguide/internal/backend/xmltvremote"
	"github.com/runnerr0/tvguide/internal/blobcache"
	"github.com/runnerr0/tvguide/internal/config"
	"github.com/runnerr0/tvguide/internal/coordinator"
	"github.com/runnerr0/tvguide/internal/guidecache"
	"github.com/runnerr0/tvguide/internal/logging"
	"github.com/runnerr0/tvguide/internal/provider"
	"github.com/runnerr0/tvguide/internal/storage"
)

// app is everything a command needs: the loaded config, the store, a
// coordinator driving the configured backend and the list caches kept
// current by its events.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	store  *storage.SQLiteStore
	coord  *coordinator.Coordinator
	caches *guidecache.Caches
	dbPath string

	closers []io.Closer
}

// newApp binds list caches to coord.
func newApp(cfg *config.Config, log *slog.Logger, store *storage.SQLiteStore, coord *coordinator.Coordinator, dbPath string) *app {
	a := &app{cfg: cfg, log: log, store: store, coord: coord, dbPath: dbPath}
	a.caches = guidecache.New(store)
	a.caches.Bind(coord)
	return a
}

// openApp loads the config (creating it on first run), opens the database
// and activates the configured backend.
func openApp(ctx context.Context, globals *GlobalFlags) (*app, error) {
	path := config.DefaultConfigPath
	if globals != nil && globals.Config != "" {
		path = globals.Config
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand config path: %w", err)
	}

	cfg, err := config.LoadOrCreateAt(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if globals != nil && globals.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}
	a := &app{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	a.dbPath, err = cfg.DBPath()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("database path: %w", err)
	}
	a.store, err = storage.Open(ctx, a.dbPath, storage.Options{
		Retention: cfg.Retention(),
		MaxFuture: cfg.MaxFuture(),
		Logger:    log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	b, err := a.buildBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	coord := coordinator.New(a.store, b, coordinator.Options{Logger: log})
	if err := coord.EnsureBackend(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("activate backend: %w", err)
	}
	bound := newApp(cfg, log, a.store, coord, a.dbPath)
	bound.closers = a.closers
	return bound, nil
}

// buildBackend creates the backend named in the config together with its
// data provider and image cache.
func (a *app) buildBackend(ctx context.Context) (backend.Backend, error) {
	cfg := a.cfg
	kind, err := cfg.BackendKind()
	if err != nil {
		return nil, err
	}

	mux := &provider.Mux{
		File: &provider.File{MaxBytes: cfg.Fetch.MaxBytes},
		HTTP: provider.NewHTTP(provider.HTTPConfig{
			UserAgent:     cfg.Fetch.UserAgent,
			Timeout:       cfg.Fetch.Timeout,
			MaxRedirects:  cfg.Fetch.MaxRedirects,
			AllowInsecure: cfg.Fetch.AllowInsecure,
			MaxBytes:      cfg.Fetch.MaxBytes,
			Logger:        a.log,
		}),
	}

	cache, err := a.imageCache(ctx)
	if err != nil {
		return nil, err
	}
	images := backend.ImageCache{Provider: mux, Cache: cache}

	switch kind {
	case backend.KindHTML:
		loc, err := time.LoadLocation(cfg.HTML.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.HTML.Timezone, err)
		}
		return htmlsite.New(a.store, mux, images, htmlsite.Config{
			BaseURL:  cfg.HTML.BaseURL,
			CDNURL:   cfg.HTML.CDNURL,
			Location: loc,
			Logger:   a.log,
		}), nil
	case backend.KindXMLTVFile:
		path, err := config.ExpandPath(cfg.XMLTVFile.Path)
		if err != nil {
			return nil, fmt.Errorf("expand xmltv file path: %w", err)
		}
		return xmltvfile.New(ctx, a.store, mux.File, images, path, a.log), nil
	case backend.KindXMLTVRemote:
		return xmltvremote.New(a.store, mux, images, xmltvremote.Config{
			BaseURL: cfg.XMLTVRemote.BaseURL,
			Logger:  a.log,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownBackend, kind)
	}
}

// imageCache returns the Redis image cache when a Redis URL is configured
// and the file cache under the storage directory otherwise.
func (a *app) imageCache(ctx context.Context) (blobcache.Cache, error) {
	if url := a.cfg.Images.RedisURL; url != "" {
		r, err := blobcache.NewRedis(url, "", a.cfg.ImageTTL())
		if err != nil {
			return nil, err
		}
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, r)
		return r, nil
	}

	dir, err := a.cfg.ImageCacheDir()
	if err != nil {
		return nil, fmt.Errorf("image cache directory: %w", err)
	}
	f, err := blobcache.NewFile(dir)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Close waits for running fetches, then releases the database and the
// remaining resources.
func (a *app) Close() error {
	if a.coord != nil {
		a.coord.Wait()
	}
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.CloseDB())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// withApp runs fn against the injected app, or against one opened from
// the config and closed afterwards.
func withApp(globals *GlobalFlags, injected *app, fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	if injected != nil {
		return fn(ctx, injected)
	}
	a, err := openApp(ctx, globals)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
