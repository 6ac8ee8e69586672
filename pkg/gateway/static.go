package gateway

import (
	"net/http"
	"strings"

	"guidecache/pkg/store"
	"guidecache/pkg/telemetry"
)

// serveStatic resolves the static class. Build output is treated as
// immutable and content addressed, so cache wins unconditionally.
func (g *Gateway) serveStatic(w http.ResponseWriter, r *http.Request, url string) {
	if e, err := store.Get(store.Static, url); err == nil {
		telemetry.CacheHits.WithLabelValues(string(ClassStatic)).Inc()
		serveEntry(w, e)
		return
	}
	telemetry.CacheMisses.WithLabelValues(string(ClassStatic)).Inc()

	if res, err := g.fetcher.Fetch(url); err == nil {
		defer res.Release()
		if res.OK() {
			serveEntry(w, g.storeResult(store.Static, url, res))
			return
		}
	}

	// Offline miss: scripts and styles get an empty, well-typed body so
	// page evaluation does not break; everything else is a plain 404.
	switch {
	case strings.HasSuffix(r.URL.Path, ".js"):
		telemetry.Fallbacks.WithLabelValues("script").Inc()
		w.Header().Set("Content-Type", "application/javascript")
		w.WriteHeader(http.StatusOK)
	case strings.HasSuffix(r.URL.Path, ".css"):
		telemetry.Fallbacks.WithLabelValues("style").Inc()
		w.Header().Set("Content-Type", "text/css")
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}
