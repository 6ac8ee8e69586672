package gateway

import (
	"net/http"

	"guidecache/pkg/store"
	"guidecache/pkg/telemetry"
)

// serveDefault resolves requests outside the known classes: network first,
// then an opportunistic exact match in any partition, then a generic
// failure. A reachable origin answering with an error status counts as a
// miss too; its response is relayed only when nothing cached stands in.
func (g *Gateway) serveDefault(w http.ResponseWriter, r *http.Request, url string) {
	res, err := g.fetcher.Fetch(url)
	if err == nil {
		defer res.Release()
		if res.OK() {
			if res.ContentType != "" {
				w.Header().Set("Content-Type", res.ContentType)
			}
			w.WriteHeader(res.Status)
			_, _ = w.Write(res.Body)
			return
		}
	}
	for _, p := range store.Partitions {
		if e, gerr := store.Get(p, url); gerr == nil {
			telemetry.CacheHits.WithLabelValues(string(ClassDefault)).Inc()
			serveEntry(w, e)
			return
		}
	}
	telemetry.CacheMisses.WithLabelValues(string(ClassDefault)).Inc()
	if err == nil {
		if res.ContentType != "" {
			w.Header().Set("Content-Type", res.ContentType)
		}
		w.WriteHeader(res.Status)
		_, _ = w.Write(res.Body)
		return
	}
	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}
