package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"guidecache/pkg/logger"
	"guidecache/pkg/metadata"
	"guidecache/pkg/models"
	"guidecache/pkg/scheduler"
	"guidecache/pkg/state"
	"guidecache/pkg/store"
	"guidecache/pkg/utils"
)

var sched *scheduler.Scheduler

// Configure injects the scheduler used by the cache operations. Must be
// called once during startup, before the router serves.
func Configure(s *scheduler.Scheduler) { sched = s }

// RegisterCache registers cache control routes on the provided router.
func RegisterCache(r *mux.Router) {
	r.HandleFunc("/cache/status", cacheStatus).Methods(http.MethodGet)
	r.HandleFunc("/cache/{locale}", cacheLocale).Methods(http.MethodPost)
	r.HandleFunc("/cache", purgeCache).Methods(http.MethodDelete)
}

// cacheLocale handles POST /v1/cache/{locale}: an explicit full download
// request. It blocks until the run, including its background tail, has
// settled, then reports the summary.
func cacheLocale(w http.ResponseWriter, r *http.Request) {
	logger.LogRequest(r)
	raw := mux.Vars(r)["locale"]
	locale, err := models.ParseLocale(raw)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := sched.Trigger(r.Context(), locale, state.Position())
	if err != nil {
		switch err {
		case scheduler.ErrRunInProgress:
			utils.JSONError(w, http.StatusConflict, "caching already in progress for "+raw)
		default:
			utils.JSONError(w, http.StatusServiceUnavailable, err.Error())
		}
		return
	}
	if err := run.Wait(r.Context()); err != nil {
		// the run keeps going in the background; tell the client
		utils.JSONError(w, http.StatusRequestTimeout, "caching continues in background")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"success": run.Summary.Failed == 0,
		"summary": run.Summary,
	})
}

// purgeCache handles DELETE /v1/cache: clears all partitions and metadata.
func purgeCache(w http.ResponseWriter, r *http.Request) {
	logger.LogRequest(r)
	if err := store.PurgeAll(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metadata.Clear()
	state.Reset()
	logger.Info("cache_purge_completed")
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "all cache partitions and metadata cleared",
	})
}

// partitionStatus is the per-partition slice of the status report.
type partitionStatus struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// cacheStatus handles GET /v1/cache/status.
func cacheStatus(w http.ResponseWriter, r *http.Request) {
	parts := map[string]partitionStatus{}
	for _, p := range store.Partitions {
		n, err := store.Count(p)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		b, err := store.SizeBytes(p)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if p == store.Data {
			// the synthetic metadata record is bookkeeping, not cached
			// content; a purged cache must report as empty
			if sz, serr := store.ValueSize(store.Data, metadata.MetaKey); serr == nil {
				n--
				b -= sz
			}
		}
		parts[string(p)] = partitionStatus{Entries: n, Bytes: b}
	}
	var pos *models.Position
	if p := state.Position(); p != nil {
		pos = p
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"success":              true,
		"partitions":           parts,
		"locale":               string(state.CurrentLocale()),
		"position":             pos,
		"fully_cached_locales": metadata.List(),
	})
}

// decodeJSON decodes a request body, rejecting trailing garbage.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
