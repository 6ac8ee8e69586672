// Package state holds process-wide session state behind explicit accessors.
// It is initialized at startup and never assumed valid across a restart;
// durable facts live in the metadata store, not here.
package state

import (
	"sync"

	"guidecache/pkg/models"
)

var (
	mu  sync.RWMutex
	pos *models.Position
)

// SetPosition records the client's latest position. Best-effort freshness:
// a stale value only degrades scheduling bias.
func SetPosition(p models.Position) {
	mu.Lock()
	defer mu.Unlock()
	cp := p
	pos = &cp
}

// Position returns a copy of the current position, or nil when no client
// has reported one since startup.
func Position() *models.Position {
	mu.RLock()
	defer mu.RUnlock()
	if pos == nil {
		return nil
	}
	cp := *pos
	return &cp
}

// CurrentLocale returns the locale of the current position, or the default
// locale when no position is known.
func CurrentLocale() models.Locale {
	mu.RLock()
	defer mu.RUnlock()
	if pos == nil {
		return models.DefaultLocale
	}
	return pos.Locale
}

// Reset clears the session state. Used by tests and cache purge.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	pos = nil
}

// SetLocale switches the session locale, preserving any known room and
// painting context (room identifiers are locale independent).
func SetLocale(l models.Locale) {
	mu.Lock()
	defer mu.Unlock()
	if pos == nil {
		pos = &models.Position{Locale: l}
		return
	}
	cp := *pos
	cp.Locale = l
	pos = &cp
}
