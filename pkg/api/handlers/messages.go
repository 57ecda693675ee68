package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"chatkeys/pkg/apperr"
	"chatkeys/pkg/auth"
	"chatkeys/pkg/models"
	"chatkeys/pkg/store"
	"chatkeys/pkg/utils"

	"github.com/gorilla/mux"
)

// RegisterMessages registers the opaque message relay endpoints. Message
// bodies are stored and returned verbatim; when a room is encrypted the
// content field is ciphertext the server cannot read.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/rooms/{id}/messages", postMessage).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{id}/messages", listMessages).Methods(http.MethodGet)
}

func postMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	caller := auth.UserIDFromContext(r.Context())
	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	room, err := store.GetRoom(id)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	if !room.HasParticipant(caller) {
		utils.JSONAppError(w, apperr.ErrNotAParticipant)
		return
	}
	// Encrypted rooms only accept ciphertext. The server cannot verify the
	// crypto, but it can refuse obviously-wrong plaintext submissions.
	if room.Encryption.Enabled && !m.IsEncrypted {
		utils.JSONError(w, http.StatusBadRequest, "room is encrypted; plaintext messages are rejected")
		return
	}
	m.Room = id
	m.Author = caller
	if m.ID == "" {
		m.ID = utils.GenID()
	}
	if m.TS == 0 {
		m.TS = time.Now().UTC().UnixNano()
	}
	if err := store.SaveMessage(id, m); err != nil {
		utils.JSONAppError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

func listMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	caller := auth.UserIDFromContext(r.Context())
	room, err := store.GetRoom(id)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	if !room.HasParticipant(caller) {
		utils.JSONAppError(w, apperr.ErrNotAParticipant)
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	var msgs []models.Message
	if limit > 0 {
		msgs, err = store.ListMessages(id, limit)
	} else {
		msgs, err = store.ListMessages(id)
	}
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Room     string           `json:"room"`
		Messages []models.Message `json:"messages"`
	}{Room: id, Messages: msgs})
}
