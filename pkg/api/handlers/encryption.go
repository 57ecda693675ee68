package handlers

import (
	"encoding/json"
	"net/http"

	"chatkeys/pkg/auth"
	"chatkeys/pkg/encryption"
	"chatkeys/pkg/logger"
	"chatkeys/pkg/utils"

	"github.com/gorilla/mux"
)

// RegisterEncryption registers the room encryption state machine and
// wrapped key endpoints under /v1/rooms/{id}.
func RegisterEncryption(r *mux.Router) {
	r.HandleFunc("/rooms/{id}/encryption", enableEncryption).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{id}/encryption", disableEncryption).Methods(http.MethodDelete)
	r.HandleFunc("/rooms/{id}/encryption", encryptionStatus).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{id}/keys/me", getRoomKey).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{id}/keys/{participantID}", storeRoomKey).Methods(http.MethodPut)
	r.HandleFunc("/rooms/{id}/participant-keys", participantKeys).Methods(http.MethodGet)
}

func enableEncryption(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	caller := auth.UserIDFromContext(r.Context())
	room, err := encryption.Enable(id, caller)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	logger.Info("encryption_enabled", "room", id, "by", caller)
	_ = utils.JSONWrite(w, http.StatusOK, room)
}

func disableEncryption(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	caller := auth.UserIDFromContext(r.Context())
	room, err := encryption.Disable(id, caller)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	logger.Info("encryption_disabled", "room", id, "by", caller)
	_ = utils.JSONWrite(w, http.StatusOK, room)
}

func encryptionStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	caller := auth.UserIDFromContext(r.Context())
	status, err := encryption.Status(id, caller)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, status)
}

// storeRoomKey upserts one participant's wrapped room key. The caller must
// be a current member; the wrapped key body is opaque to the server.
func storeRoomKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, participant := vars["id"], vars["participantID"]
	caller := auth.UserIDFromContext(r.Context())
	var req struct {
		EncryptedKey string `json:"encrypted_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	entry, err := encryption.StoreKey(id, participant, req.EncryptedKey, caller)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	logger.Info("room_key_stored", "room", id, "participant", participant, "by", caller)
	_ = utils.JSONWrite(w, http.StatusOK, entry)
}

// getRoomKey returns the caller's own wrapped key, never anyone else's.
func getRoomKey(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	caller := auth.UserIDFromContext(r.Context())
	entry, err := encryption.GetKey(id, caller)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, entry)
}

func participantKeys(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	caller := auth.UserIDFromContext(r.Context())
	keys, err := encryption.ParticipantPublicKeys(id, caller)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Keys map[string]string `json:"keys"`
	}{Keys: keys})
}
