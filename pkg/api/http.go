package api

import (
	"net/http"

	"chatkeys/pkg/api/handlers"
	"chatkeys/pkg/store"

	"github.com/gorilla/mux"
)

// Handler returns the versioned API router. Authentication and signature
// middleware are layered on by the caller; every handler below assumes the
// request context already carries the verified user id.
func Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterKeys(v1)
	handlers.RegisterRooms(v1)
	handlers.RegisterEncryption(v1)
	handlers.RegisterMessages(v1)

	return r
}
