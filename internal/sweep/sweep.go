// Package sweep periodically re-verifies fully-cached claims against actual
// cache coverage and evicts stale page entries. It exists because partitions
// can lose entries out of band (disk cleanup, purge of a single URL) while
// the metadata record still advertises full coverage.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"guidecache/pkg/config"
	"guidecache/pkg/logger"
	"guidecache/pkg/manifest"
	"guidecache/pkg/metadata"
	"guidecache/pkg/models"
	"guidecache/pkg/scheduler"
	"guidecache/pkg/store"
)

// Start launches the sweep scheduler when enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.SweepConfig, pageMaxAge time.Duration) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("sweep_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "*/30 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweep_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid sweep cron expression: %s", cfg.Cron)
	}

	logger.Info("sweep_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, pageMaxAge)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it.
func runScheduler(ctx context.Context, cronExpr string, pageMaxAge time.Duration) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweep_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(pageMaxAge); err != nil {
				logger.Error("sweep_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		}
	}
}

// RunOnce performs a single sweep: demote locales whose coverage no longer
// holds, then evict pages older than pageMaxAge.
func RunOnce(pageMaxAge time.Duration) error {
	for _, raw := range metadata.List() {
		l, err := models.ParseLocale(raw)
		if err != nil {
			continue
		}
		rooms, err := manifest.LoadRooms(l, nil)
		if err != nil {
			// cannot verify without the data file; the claim stands
			logger.Warn("sweep_coverage_unverifiable", "locale", raw)
			continue
		}
		if !scheduler.Coverage(manifest.Build(l, rooms)) {
			metadata.Demote(l)
		}
	}

	if pageMaxAge <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-pageMaxAge).UnixNano()
	keys, err := store.Keys(store.Pages)
	if err != nil {
		return err
	}
	evicted := 0
	for _, k := range keys {
		e, err := store.Get(store.Pages, k)
		if err != nil {
			continue
		}
		if e.FetchedAt < cutoff {
			if err := store.Delete(store.Pages, k); err == nil {
				evicted++
			}
		}
	}
	if evicted > 0 {
		logger.Info("sweep_pages_evicted", "count", evicted)
	}
	return nil
}
