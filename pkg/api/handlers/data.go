package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"guidecache/pkg/manifest"
	"guidecache/pkg/models"
	"guidecache/pkg/store"
	"guidecache/pkg/utils"
)

// RegisterData registers the cached room data route.
func RegisterData(r *mux.Router) {
	r.HandleFunc("/data/{locale}", getCachedData).Methods(http.MethodGet)
}

// getCachedData handles GET /v1/data/{locale}: returns the locale's cached
// room data, failing when the data file was never cached. This is a pure
// cache read; it never reaches for the network.
func getCachedData(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["locale"]
	locale, err := models.ParseLocale(raw)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := store.Get(store.Data, manifest.DataPath(locale))
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "no cached data for locale "+raw)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"roomData": json.RawMessage(e.Body),
	})
}
