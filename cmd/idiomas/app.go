package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/conorfennell/idiomas/internal/assetcache"
	"github.com/conorfennell/idiomas/internal/backend"
	"github.com/conorfennell/idiomas/internal/bundle"
	"github.com/conorfennell/idiomas/internal/cache"
	"github.com/conorfennell/idiomas/internal/config"
	"github.com/conorfennell/idiomas/internal/practice"
	"github.com/conorfennell/idiomas/internal/remote"
	"github.com/conorfennell/idiomas/internal/resolver"
	"github.com/conorfennell/idiomas/internal/storage"
	isync "github.com/conorfennell/idiomas/internal/sync"
	"github.com/conorfennell/idiomas/internal/web"
	"github.com/conorfennell/idiomas/internal/worker"
)

// app is the client side: everything a page needs to resolve vocabulary,
// keep XP and talk to the remote store.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	remote   remote.Store
	bundle   bundle.Loader
	progress *storage.ProgressStore
	resolver *resolver.Resolver
	syncer   *isync.Syncer
	practice *practice.Service
	pool     *worker.Pool
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := openRemote(cfg)
	if err != nil {
		return nil, err
	}
	a.remote = store
	if c, ok := store.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	cacheStore := a.openCacheStore(ctx)
	w, err := assetcache.New(assetcache.Options{
		Version:  cfg.Cache.Version,
		Manifest: cfg.Cache.Manifest,
		Origin:   cfg.App.Origin,
		Store:    cacheStore,
		Logger:   logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	if err := w.Ensure(ctx); err != nil {
		logger.Warn("Asset cache not ready", "error", err)
	}

	a.bundle = bundle.Chain{
		bundle.HTTPLoader{Client: w.Client(), URL: strings.TrimRight(cfg.App.Origin, "/") + cfg.App.BundlePath},
		bundle.FSLoader{FS: web.Static, Name: web.BundleName},
	}

	a.progress = storage.NewProgressStore(cfg.Storage.ProgressDB)
	if err := a.progress.Open(ctx); err != nil {
		a.close()
		return nil, err
	}

	be := backend.NewClient(cfg.Backend.BaseURL, nil)
	a.resolver = resolver.New(store, be, logger,
		resolver.RemoteSource{Store: store},
		resolver.BackendSource{Client: be},
		resolver.BundleSource{Loader: a.bundle},
	)

	a.pool = worker.NewPool(cfg.Sync.Workers, cfg.Sync.Queue, logger)
	a.pool.Start(ctx)
	a.syncer = isync.NewSyncer(isync.Options{
		Store:    store,
		Pool:     a.pool,
		Identity: cfg.Remote.Identity,
		Timeout:  cfg.Sync.Timeout,
		Logger:   logger,
	})
	a.practice = practice.NewService(a.progress, a.resolver, a.syncer, logger)
	return a, nil
}

// openRemote picks the direct Postgres store, the REST client or nothing.
func openRemote(cfg *config.Config) (remote.Store, error) {
	if !cfg.RemoteConfigured() {
		return remote.Disabled{}, nil
	}
	if cfg.Remote.DatabaseURL != "" {
		return remote.OpenSQL(cfg.Remote.DatabaseURL)
	}
	c := remote.NewClient(cfg.Remote.URL, cfg.Remote.Key, nil)
	if cfg.Remote.Token != "" {
		c = c.WithToken(cfg.Remote.Token)
	}
	return c, nil
}

// openCacheStore prefers Redis when configured and falls back to the local
// sqlite cache when Redis cannot be reached.
func (a *app) openCacheStore(ctx context.Context) assetcache.Store {
	if url := a.cfg.Cache.RedisURL; url != "" {
		rs, err := cache.NewRedisStore(ctx, url)
		if err == nil {
			a.closers = append(a.closers, rs.Close)
			return rs
		}
		a.logger.Warn("Redis asset cache unavailable, using local cache", "error", err)
	}
	cs, err := storage.OpenCache(a.cfg.Storage.CacheDB)
	if err != nil {
		a.logger.Warn("Local asset cache unavailable, caching in memory", "error", err)
		return assetcache.NewMemoryStore()
	}
	a.closers = append(a.closers, cs.Close)
	return cs
}

// close waits for queued remote writes and releases stores.
func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close store", "error", err)
		}
	}
}
