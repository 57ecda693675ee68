package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"chatkeys/pkg/auth"
	"chatkeys/pkg/encryption"
	"chatkeys/pkg/logger"
	"chatkeys/pkg/utils"

	"github.com/gorilla/mux"
)

// RegisterKeys registers the public key registry endpoints.
func RegisterKeys(r *mux.Router) {
	r.HandleFunc("/keys", registerPublicKey).Methods(http.MethodPost)
	r.HandleFunc("/keys", getPublicKeys).Methods(http.MethodGet)
}

// registerPublicKey upserts the caller's own public key.
func registerPublicKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"user_id"`
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	caller := auth.UserIDFromContext(r.Context())
	if caller == "" {
		utils.JSONError(w, http.StatusUnauthorized, "caller identity required")
		return
	}
	if req.UserID == "" {
		req.UserID = caller
	}
	if err := encryption.RegisterPublicKey(caller, req.UserID, req.PublicKey); err != nil {
		utils.JSONAppError(w, err)
		return
	}
	logger.Info("public_key_registered", "user", req.UserID)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "registered", "user_id": req.UserID})
}

// getPublicKeys returns the registered keys for a comma-separated user_ids
// query. Unregistered users are omitted from the result map.
func getPublicKeys(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("user_ids"))
	if raw == "" {
		utils.JSONError(w, http.StatusBadRequest, "user_ids query parameter required")
		return
	}
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	keys, err := encryption.GetPublicKeys(ids)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Keys map[string]string `json:"keys"`
	}{Keys: keys})
}
