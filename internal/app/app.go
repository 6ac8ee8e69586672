package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"guidecache/internal/sweep"
	"guidecache/pkg/config"
	"guidecache/pkg/fetch"
	"guidecache/pkg/gateway"
	"guidecache/pkg/logger"
	"guidecache/pkg/metadata"
	"guidecache/pkg/scheduler"
	"guidecache/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	fetcher *fetch.Client
	sched   *scheduler.Scheduler
	gw      *gateway.Gateway

	sweepCancel context.CancelFunc
	srv         *http.Server
}

// New initializes resources that do not require a running context: config
// validation, cache partitions, the persisted metadata record and the
// scheduler. It does not start the sweep job or the HTTP server; call Run
// to start those and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", eff.DBPath, err)
	}

	// load persisted fully-cached record; read errors degrade to empty
	metadata.Load()

	f := fetch.New(eff.Origin, cfg.Origin.FetchTimeout.Duration())
	sched := scheduler.New(f, cfg.Scheduler)
	gw := gateway.New(f, sched, cfg.Origin.PageTimeout.Duration(), int64(cfg.Cache.MaxBodyBytes))

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		fetcher:   f,
		sched:     sched,
		gw:        gw,
	}, nil
}

// Run starts the sweep job and the HTTP server, and blocks until ctx is
// cancelled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	cancel, err := sweep.Start(ctx, a.eff.Config.Sweep, a.eff.Config.Cache.PageMaxAge.Duration())
	if err != nil {
		return err
	}
	a.sweepCancel = cancel

	// best effort: the offline fallback media must be cached before the
	// first offline request needs it
	go warmFallbacks(a.fetcher)

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// warmFallbacks caches the placeholder media the gateway degrades to when
// offline. Failures are logged only; the next online request retries.
func warmFallbacks(f *fetch.Client) {
	for _, url := range []string{gateway.FallbackImageURL, gateway.FallbackAudioURL} {
		if store.Has(store.Assets, url) {
			continue
		}
		res, err := f.Fetch(url)
		if err != nil {
			logger.Warn("fallback_warmup_failed", "url", url, "error", err)
			continue
		}
		if res.OK() {
			err = store.Put(store.Assets, url, store.Entry{
				Status:      res.Status,
				ContentType: res.ContentType,
				Body:        append([]byte(nil), res.Body...),
			})
			if err != nil {
				logger.Warn("fallback_warmup_failed", "url", url, "error", err)
			}
		}
		res.Release()
	}
}

func (a *App) shutdown() {
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = a.srv.Shutdown(sctx)
	}
	_ = store.Close()
}
