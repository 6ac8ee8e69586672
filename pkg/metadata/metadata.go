// Package metadata tracks which locales require no further caching work.
// The record survives worker restarts: it is loaded once at startup, held
// in memory, and written back to the Data partition on every mutation.
package metadata

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"guidecache/pkg/logger"
	"guidecache/pkg/models"
	"guidecache/pkg/store"
)

// MetaKey is the fixed synthetic cache key the record persists under. The
// scheme keeps it out of any real URL space.
const MetaKey = "internal://cache-metadata"

// Record is the single persisted metadata object.
type Record struct {
	FullyCachedLocales []string `json:"fully_cached_locales"`
	LastUpdated        string   `json:"last_updated"`
}

var (
	mu    sync.Mutex
	fully = map[models.Locale]struct{}{}
)

// Load reads the metadata record from the Data partition. It never fails
// the caller: on any read error it logs and starts from an empty set, since
// a cold start is always valid, if conservative.
func Load() {
	mu.Lock()
	defer mu.Unlock()
	fully = map[models.Locale]struct{}{}
	e, err := store.Get(store.Data, MetaKey)
	if err != nil {
		if err != store.ErrNotFound {
			logger.Warn("metadata_load_failed", "error", err)
		}
		return
	}
	var rec Record
	if err := json.Unmarshal(e.Body, &rec); err != nil {
		logger.Warn("metadata_corrupt", "error", err)
		return
	}
	for _, s := range rec.FullyCachedLocales {
		if l, err := models.ParseLocale(s); err == nil {
			fully[l] = struct{}{}
		}
	}
	logger.Info("metadata_loaded", "fully_cached", len(fully))
}

// save persists the current set. Callers must hold mu. Last-write-wins is
// fine: all mutation happens from one scheduler path per locale.
func save() error {
	rec := Record{FullyCachedLocales: listLocked(), LastUpdated: time.Now().UTC().Format(time.RFC3339)}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return store.Put(store.Data, MetaKey, store.Entry{
		Status:      200,
		ContentType: "application/json",
		Body:        b,
	})
}

func listLocked() []string {
	out := make([]string, 0, len(fully))
	for l := range fully {
		out = append(out, string(l))
	}
	sort.Strings(out)
	return out
}

// MarkFullyCached records that every asset in the locale's manifest is
// confirmed present in cache, and persists immediately.
func MarkFullyCached(l models.Locale) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := fully[l]; ok {
		return
	}
	fully[l] = struct{}{}
	if err := save(); err != nil {
		logger.Error("metadata_save_failed", "locale", string(l), "error", err)
	}
	logger.Info("locale_fully_cached", "locale", string(l))
}

// Demote removes a locale from the fully-cached set, used by the sweep when
// actual coverage no longer holds.
func Demote(l models.Locale) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := fully[l]; !ok {
		return
	}
	delete(fully, l)
	if err := save(); err != nil {
		logger.Error("metadata_save_failed", "locale", string(l), "error", err)
	}
	logger.Info("locale_demoted", "locale", string(l))
}

// IsFullyCached reports whether the locale needs no further caching work.
func IsFullyCached(l models.Locale) bool {
	mu.Lock()
	defer mu.Unlock()
	_, ok := fully[l]
	return ok
}

// List returns the fully-cached locales, sorted.
func List() []string {
	mu.Lock()
	defer mu.Unlock()
	return listLocked()
}

// Clear empties the set and persists the empty state. Used by cache purge.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	fully = map[models.Locale]struct{}{}
	if err := save(); err != nil {
		logger.Error("metadata_save_failed", "error", err)
	}
	logger.Info("metadata_cleared")
}
