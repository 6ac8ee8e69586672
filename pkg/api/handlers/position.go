package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"guidecache/pkg/logger"
	"guidecache/pkg/models"
	"guidecache/pkg/scheduler"
	"guidecache/pkg/state"
	"guidecache/pkg/utils"
)

// RegisterPosition registers the position update route.
func RegisterPosition(r *mux.Router) {
	r.HandleFunc("/position", updatePosition).Methods(http.MethodPost)
}

// updatePosition handles POST /v1/position. It acks immediately and
// triggers a background scheduling run for the position's locale; a run
// already in progress for that locale drops the trigger without error.
func updatePosition(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RoomID     string `json:"room_id"`
		PaintingID string `json:"painting_id"`
		Locale     string `json:"locale"`
	}
	if err := decodeJSON(r, &in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	locale, err := models.ParseLocale(in.Locale)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.RoomID == "" {
		utils.JSONError(w, http.StatusBadRequest, "room_id required")
		return
	}
	pos := models.Position{RoomID: in.RoomID, PaintingID: in.PaintingID, Locale: locale}
	state.SetPosition(pos)
	logger.Debug("position_updated", "room", pos.RoomID, "painting", pos.PaintingID, "locale", string(locale))

	go func() {
		run, err := sched.Trigger(context.Background(), locale, &pos)
		if err != nil {
			if err != scheduler.ErrRunInProgress {
				logger.Warn("position_trigger_failed", "locale", string(locale), "error", err)
			}
			return
		}
		<-run.Done()
	}()

	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"success": true})
}
