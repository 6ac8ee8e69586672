package gateway

import (
	"net/http"
	"strings"

	"guidecache/pkg/logger"
	"guidecache/pkg/store"
	"guidecache/pkg/telemetry"
)

// Fallback media keys. The fallbacks themselves are ordinary cached assets;
// if a fallback was never cached, the asset class is the one path allowed
// to fail the request.
const (
	FallbackImageURL = "/images/offline.png"
	FallbackAudioURL = "/audio/silence.mp3"
)

// serveAsset resolves the asset class:
// assets cache -> data cache -> network (write-through) -> media fallback
// -> hard failure.
func (g *Gateway) serveAsset(w http.ResponseWriter, r *http.Request, url string) {
	if e, err := store.Get(store.Assets, url); err == nil {
		telemetry.CacheHits.WithLabelValues(string(ClassAsset)).Inc()
		serveEntry(w, e)
		return
	}
	if e, err := store.Get(store.Data, url); err == nil {
		telemetry.CacheHits.WithLabelValues(string(ClassAsset)).Inc()
		serveEntry(w, e)
		return
	}
	telemetry.CacheMisses.WithLabelValues(string(ClassAsset)).Inc()

	if res, err := g.fetcher.Fetch(url); err == nil {
		defer res.Release()
		if res.OK() {
			// classify by content type so JSON lands in the data partition
			p := store.Assets
			if strings.Contains(res.ContentType, "application/json") {
				p = store.Data
			}
			serveEntry(w, g.storeResult(p, url, res))
			return
		}
		logger.Debug("asset_origin_bad_status", "url", url, "status", res.Status)
	}

	// offline and unmatched: class-specific fallback
	switch {
	case isImagePath(url):
		if e, err := store.Get(store.Assets, FallbackImageURL); err == nil {
			telemetry.Fallbacks.WithLabelValues("image").Inc()
			serveEntry(w, e)
			return
		}
	case isAudioPath(url):
		if e, err := store.Get(store.Assets, FallbackAudioURL); err == nil {
			telemetry.Fallbacks.WithLabelValues("audio").Inc()
			serveEntry(w, e)
			return
		}
	}

	// nothing left to fall back to
	logger.Warn("asset_unresolvable", "url", url)
	http.Error(w, "asset unavailable", http.StatusServiceUnavailable)
}

func isImagePath(url string) bool {
	return strings.HasPrefix(url, "/images/")
}

func isAudioPath(url string) bool {
	return strings.HasPrefix(url, "/audio/")
}
