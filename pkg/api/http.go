// Package api wires the control surface and the gateway catch-all into a
// single router.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"guidecache/pkg/api/handlers"
	"guidecache/pkg/gateway"
	"guidecache/pkg/scheduler"
)

// Handler returns the full HTTP handler: the versioned control API under
// /v1 and the gateway as the catch-all for all content traffic.
func Handler(sched *scheduler.Scheduler, gw *gateway.Gateway) http.Handler {
	handlers.Configure(sched)

	r := mux.NewRouter()

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterPosition(v1)
	handlers.RegisterData(v1)
	handlers.RegisterCache(v1)

	// everything else is content traffic
	r.PathPrefix("/").Handler(gw)
	return r
}
