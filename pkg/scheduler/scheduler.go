// Package scheduler decides fetch order for uncached assets and drives the
// download of a locale, biased toward what the user needs next. A run
// fetches a bounded high-priority head synchronously, then completes the
// remainder in rate-limited background chunks.
package scheduler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"guidecache/pkg/config"
	"guidecache/pkg/fetch"
	"guidecache/pkg/logger"
	"guidecache/pkg/manifest"
	"guidecache/pkg/metadata"
	"guidecache/pkg/models"
	"guidecache/pkg/store"
	"guidecache/pkg/telemetry"
	"guidecache/pkg/utils"
)

// ErrRunInProgress is returned when a run for the locale is already active.
// Concurrent triggers are dropped, not queued: the active run converges to
// full coverage or the next position update retries.
var ErrRunInProgress = errors.New("scheduling run already in progress for locale")

// Fetcher is the subset of the origin client the scheduler needs.
type Fetcher interface {
	Fetch(path string) (*fetch.Result, error)
	FetchTimeout(path string, d time.Duration) (*fetch.Result, error)
}

// Detail reports the outcome of one asset fetch.
type Detail struct {
	URL   string `json:"url"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Summary aggregates a whole run (head batch plus background tail).
type Summary struct {
	RunID     string        `json:"run_id"`
	Locale    models.Locale `json:"locale"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Details   []Detail      `json:"details,omitempty"`

	mu sync.Mutex
}

func (s *Summary) record(d Detail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.OK {
		s.Succeeded++
	} else {
		s.Failed++
	}
	s.Details = append(s.Details, d)
}

// Run is a handle on one admitted scheduling run. Done is closed after the
// background tail settles and the coverage check ran, so tests and the
// explicit cache operation can await completion deterministically.
type Run struct {
	ID      string
	Locale  models.Locale
	Summary *Summary
	done    chan struct{}
}

// Done returns a channel closed when the run (including its background
// tail) has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes or ctx is canceled.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Scheduler owns per-locale run admission and the fetch pipeline.
type Scheduler struct {
	fetcher Fetcher
	cfg     config.SchedulerConfig
	limiter *rate.Limiter

	mu      sync.Mutex
	running map[models.Locale]bool
}

// New builds a scheduler using the given origin client and tunables.
func New(f Fetcher, cfg config.SchedulerConfig) *Scheduler {
	if cfg.HeadBatchSize <= 0 {
		cfg.HeadBatchSize = config.DefaultHeadBatchSize
	}
	if cfg.TailChunkSize <= 0 {
		cfg.TailChunkSize = config.DefaultTailChunkSize
	}
	if cfg.TailDelay.Duration() <= 0 {
		cfg.TailDelay = config.Duration(config.DefaultTailDelay)
	}
	if cfg.TailRPS <= 0 {
		cfg.TailRPS = config.DefaultTailRPS
	}
	if cfg.TailBurst <= 0 {
		cfg.TailBurst = config.DefaultTailBurst
	}
	if cfg.HeadConcurrency <= 0 {
		cfg.HeadConcurrency = config.DefaultHeadConcurrency
	}
	return &Scheduler{
		fetcher: f,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.TailRPS), cfg.TailBurst),
		running: map[models.Locale]bool{},
	}
}

// admit claims the locale's run slot. Admission is a single critical
// section so two near-simultaneous triggers cannot both enter.
func (s *Scheduler) admit(l models.Locale) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[l] {
		return false
	}
	s.running[l] = true
	return true
}

func (s *Scheduler) release(l models.Locale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, l)
}

// Running reports whether a run for the locale is currently active.
func (s *Scheduler) Running(l models.Locale) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[l]
}

// Trigger starts a scheduling run for the locale. The returned Run has its
// head batch settled; the tail continues in the background. A second
// trigger while a run is active returns ErrRunInProgress.
func (s *Scheduler) Trigger(ctx context.Context, l models.Locale, pos *models.Position) (*Run, error) {
	if !s.admit(l) {
		logger.Debug("scheduler_run_dropped", "locale", string(l))
		return nil, ErrRunInProgress
	}
	telemetry.SchedulerRuns.Inc()

	rooms, err := manifest.LoadRooms(l, s.fetcher)
	if err != nil {
		s.release(l)
		return nil, err
	}
	assets := manifest.Build(l, rooms)
	plan := Plan(assets, assetCached, pos)

	id := utils.GenRunID()
	run := &Run{
		ID:      id,
		Locale:  l,
		Summary: &Summary{RunID: id, Locale: l, Total: len(plan)},
		done:    make(chan struct{}),
	}
	logger.Info("scheduler_run_started", "run", id, "locale", string(l), "uncached", len(plan), "manifest", len(assets))

	if len(plan) == 0 {
		// nothing to fetch; confirm coverage and finish synchronously
		s.finish(l, assets, run)
		return run, nil
	}

	head := plan
	var tail []manifest.Asset
	if len(plan) > s.cfg.HeadBatchSize {
		head = plan[:s.cfg.HeadBatchSize]
		tail = plan[s.cfg.HeadBatchSize:]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.HeadConcurrency)
	for _, a := range head {
		a := a
		g.Go(func() error {
			select {
			case <-gctx.Done():
				run.Summary.record(Detail{URL: a.URL, OK: false, Error: gctx.Err().Error()})
				return nil
			default:
			}
			s.fetchAndStore(a, run.Summary)
			return nil
		})
	}
	_ = g.Wait()

	// Background tail: deferred, chunked and rate limited. The run handle's
	// Done channel closes only after the tail and the coverage check.
	go s.runTail(l, assets, tail, run)
	return run, nil
}

func (s *Scheduler) runTail(l models.Locale, assets, tail []manifest.Asset, run *Run) {
	if len(tail) > 0 {
		time.Sleep(s.cfg.TailDelay.Duration())
		for start := 0; start < len(tail); start += s.cfg.TailChunkSize {
			end := start + s.cfg.TailChunkSize
			if end > len(tail) {
				end = len(tail)
			}
			for _, a := range tail[start:end] {
				_ = s.limiter.Wait(context.Background())
				s.fetchAndStore(a, run.Summary)
			}
		}
	}
	s.finish(l, assets, run)
}

// finish re-checks actual cache coverage against the full manifest; only
// confirmed full presence flips the locale to fully cached. Partial
// failures leave it unmarked so a future trigger retries the missing
// subset.
func (s *Scheduler) finish(l models.Locale, assets []manifest.Asset, run *Run) {
	covered := Coverage(assets)
	if covered {
		metadata.MarkFullyCached(l)
	}
	s.release(l)
	close(run.done)
	logger.Info("scheduler_run_finished",
		"run", run.Summary.RunID,
		"locale", string(l),
		"succeeded", run.Summary.Succeeded,
		"failed", run.Summary.Failed,
		"fully_cached", covered,
	)
}

// Coverage reports whether every manifest asset is present in its cache
// partition.
func Coverage(assets []manifest.Asset) bool {
	for _, a := range assets {
		if !assetCached(a) {
			return false
		}
	}
	return true
}

func assetCached(a manifest.Asset) bool {
	return store.Has(partitionFor(a.Class), a.URL)
}

func partitionFor(c manifest.Class) store.Partition {
	if c == manifest.ClassData {
		return store.Data
	}
	return store.Assets
}

func (s *Scheduler) fetchAndStore(a manifest.Asset, sum *Summary) {
	res, err := s.fetcher.Fetch(a.URL)
	if err != nil {
		telemetry.OriginFetches.WithLabelValues("error").Inc()
		sum.record(Detail{URL: a.URL, OK: false, Error: err.Error()})
		return
	}
	defer res.Release()
	if !res.OK() {
		telemetry.OriginFetches.WithLabelValues("bad_status").Inc()
		sum.record(Detail{URL: a.URL, OK: false, Error: "status " + strconv.Itoa(res.Status)})
		return
	}
	err = store.Put(partitionFor(a.Class), a.URL, store.Entry{
		Status:      res.Status,
		ContentType: res.ContentType,
		Body:        append([]byte(nil), res.Body...),
	})
	if err != nil {
		sum.record(Detail{URL: a.URL, OK: false, Error: err.Error()})
		return
	}
	telemetry.OriginFetches.WithLabelValues("ok").Inc()
	telemetry.AssetsCached.Inc()
	sum.record(Detail{URL: a.URL, OK: true})
}
