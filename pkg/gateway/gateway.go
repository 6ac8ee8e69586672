// Package gateway intercepts every content request and decides whether to
// serve from a cache partition or the network. Each request is classified
// into exactly one class and dispatched to that class's handler; each
// handler is a small state machine with a fixed fallback order.
package gateway

import (
	"context"
	"net/http"
	"time"

	"guidecache/pkg/fetch"
	"guidecache/pkg/logger"
	"guidecache/pkg/models"
	"guidecache/pkg/scheduler"
	"guidecache/pkg/state"
	"guidecache/pkg/store"
)

// Fetcher is the subset of the origin client the gateway needs.
type Fetcher interface {
	Fetch(path string) (*fetch.Result, error)
	FetchTimeout(path string, d time.Duration) (*fetch.Result, error)
}

// Gateway serves all content traffic.
type Gateway struct {
	fetcher     Fetcher
	sched       *scheduler.Scheduler
	pageTimeout time.Duration
	maxBody     int64
}

// New builds a gateway. sched may be nil in tests that do not exercise the
// locale-change trigger.
func New(f Fetcher, sched *scheduler.Scheduler, pageTimeout time.Duration, maxBody int64) *Gateway {
	if pageTimeout <= 0 {
		pageTimeout = 3 * time.Second
	}
	return &Gateway{fetcher: f, sched: sched, pageTimeout: pageTimeout, maxBody: maxBody}
}

// MetricsClass adapts Classify for the telemetry middleware.
func MetricsClass(path string) string { return string(Classify(path)) }

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	url := r.URL.RequestURI()
	switch Classify(r.URL.Path) {
	case ClassAsset:
		g.serveAsset(w, r, url)
	case ClassStatic:
		g.serveStatic(w, r, url)
	case ClassPage:
		g.servePage(w, r, url)
	default:
		g.serveDefault(w, r, url)
	}
}

// serveEntry writes a cached entry back to the client.
func serveEntry(w http.ResponseWriter, e store.Entry) {
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(e.Body)
}

// storeResult writes a successful origin response through to the partition
// and returns the stored entry. Responses above the body cap are served but
// not cached.
func (g *Gateway) storeResult(p store.Partition, url string, res *fetch.Result) store.Entry {
	e := store.Entry{
		URL:         url,
		Status:      res.Status,
		ContentType: res.ContentType,
		Body:        append([]byte(nil), res.Body...),
	}
	if g.maxBody > 0 && int64(len(e.Body)) > g.maxBody {
		logger.Warn("cache_skip_oversize", "url", url, "len", len(e.Body))
		return e
	}
	if err := store.Put(p, url, e); err != nil {
		logger.Warn("cache_write_through_failed", "url", url, "error", err)
	}
	return e
}

// triggerLocale starts a non-blocking scheduling run when page navigation
// reveals a locale switch.
func (g *Gateway) triggerLocale(l models.Locale) {
	if g.sched == nil {
		return
	}
	if l == state.CurrentLocale() && state.Position() != nil {
		return
	}
	state.SetLocale(l)
	go func() {
		run, err := g.sched.Trigger(context.Background(), l, state.Position())
		if err != nil {
			if err != scheduler.ErrRunInProgress {
				logger.Warn("locale_trigger_failed", "locale", string(l), "error", err)
			}
			return
		}
		<-run.Done()
	}()
}
