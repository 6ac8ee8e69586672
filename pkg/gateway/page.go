package gateway

import (
	"net/http"

	"guidecache/pkg/logger"
	"guidecache/pkg/models"
	"guidecache/pkg/store"
	"guidecache/pkg/telemetry"
)

// servePage resolves the page class. Exact-URL cache wins even when online
// for instant perceived navigation; offline misses walk a fixed fallback
// chain ending at a generated notice page.
func (g *Gateway) servePage(w http.ResponseWriter, r *http.Request, url string) {
	locale := models.DefaultLocale
	if l, ok := pathLocale(r.URL.Path); ok {
		locale = l
		g.triggerLocale(l)
	}

	if e, err := store.Get(store.Pages, url); err == nil {
		telemetry.CacheHits.WithLabelValues(string(ClassPage)).Inc()
		serveEntry(w, e)
		return
	}
	telemetry.CacheMisses.WithLabelValues(string(ClassPage)).Inc()

	// network, bounded so a slow origin cannot stall navigation
	if res, err := g.fetcher.FetchTimeout(url, g.pageTimeout); err == nil {
		defer res.Release()
		if res.OK() {
			serveEntry(w, g.storeResult(store.Pages, url, res))
			return
		}
		logger.Debug("page_origin_bad_status", "url", url, "status", res.Status)
	}

	// offline fallback chain, in strict order
	for _, candidate := range []string{
		FirstRoomPage(locale),
		RootPage(locale),
		RootPage(models.DefaultLocale),
	} {
		if candidate == url {
			continue
		}
		if e, err := store.Get(store.Pages, candidate); err == nil {
			telemetry.Fallbacks.WithLabelValues("page").Inc()
			serveEntry(w, e)
			return
		}
	}

	telemetry.Fallbacks.WithLabelValues("offline_page").Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(offlinePage(r.URL.Path, locale))
}

// FirstRoomPage returns the locale's first-room page URL.
func FirstRoomPage(l models.Locale) string {
	return "/" + string(l) + "/room/1"
}

// RootPage returns the locale's root page URL.
func RootPage(l models.Locale) string {
	return "/" + string(l)
}
