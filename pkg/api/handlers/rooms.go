package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chatkeys/pkg/apperr"
	"chatkeys/pkg/auth"
	"chatkeys/pkg/encryption"
	"chatkeys/pkg/logger"
	"chatkeys/pkg/models"
	"chatkeys/pkg/store"
	"chatkeys/pkg/utils"
	"chatkeys/pkg/validation"

	"github.com/gorilla/mux"
)

// RegisterRooms registers room lifecycle and membership endpoints.
func RegisterRooms(r *mux.Router) {
	r.HandleFunc("/rooms", createRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{id}", getRoom).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{id}/participants", addParticipant).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{id}/participants/{userID}", removeParticipant).Methods(http.MethodDelete)
}

func createRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID           string   `json:"id"`
		Title        string   `json:"title"`
		Participants []string `json:"participants"`
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
	if req.ID == "" {
		req.ID = utils.GenRoomID()
	}
	if err := validation.ValidateRoomID(req.ID); err != nil {
		utils.JSONAppError(w, err)
		return
	}
	// Creator is always a participant.
	participants := []string{caller}
	for _, p := range req.Participants {
		if err := validation.ValidateUserID(p); err != nil {
			utils.JSONAppError(w, err)
			return
		}
		if p != caller {
			participants = append(participants, p)
		}
	}
	if _, err := store.GetRoom(req.ID); err == nil {
		utils.JSONError(w, http.StatusConflict, "room already exists")
		return
	} else if !errors.Is(err, apperr.ErrRoomNotFound) {
		utils.JSONAppError(w, err)
		return
	}
	now := time.Now().UTC().UnixNano()
	room := models.Room{
		ID:           req.ID,
		Title:        req.Title,
		CreatedBy:    caller,
		CreatedTS:    now,
		UpdatedTS:    now,
		Participants: participants,
	}
	if err := store.SaveRoom(room); err != nil {
		utils.JSONAppError(w, err)
		return
	}
	logger.Info("room_created", "room", room.ID, "creator", caller, "participants", len(participants))
	_ = utils.JSONWrite(w, http.StatusCreated, room)
}

func getRoom(w http.ResponseWriter, r *http.Request) {
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
	_ = utils.JSONWrite(w, http.StatusOK, room)
}

func addParticipant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	caller := auth.UserIDFromContext(r.Context())
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateUserID(req.UserID); err != nil {
		utils.JSONAppError(w, err)
		return
	}
	room, err := store.MutateRoom(id, func(room *models.Room) error {
		if !room.HasParticipant(caller) {
			return apperr.ErrNotAParticipant
		}
		if room.HasParticipant(req.UserID) {
			return apperr.ErrAlreadyParticipant
		}
		room.Participants = append(room.Participants, req.UserID)
		return nil
	})
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	logger.Info("participant_added", "room", id, "user", req.UserID, "by", caller)
	// If the room is encrypted the newcomer has no wrapped key yet; the
	// next GetRoomKey miss on their side triggers a distribution round.
	_ = utils.JSONWrite(w, http.StatusOK, room)
}

func removeParticipant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, target := vars["id"], vars["userID"]
	caller := auth.UserIDFromContext(r.Context())
	room, err := store.MutateRoom(id, func(room *models.Room) error {
		if !room.HasParticipant(caller) {
			return apperr.ErrNotAParticipant
		}
		if !room.HasParticipant(target) {
			return apperr.ErrNotAParticipant
		}
		kept := room.Participants[:0]
		for _, p := range room.Participants {
			if p != target {
				kept = append(kept, p)
			}
		}
		room.Participants = kept
		return nil
	})
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}
	// Purge the departed member's wrapped key inline. The background
	// sweeper covers the window where this write is lost to a crash.
	if err := encryption.PurgeParticipantKey(id, target); err != nil {
		logger.Warn("purge_on_removal_failed", "room", id, "user", target, "err", err)
	}
	logger.Info("participant_removed", "room", id, "user", target, "by", caller)
	_ = utils.JSONWrite(w, http.StatusOK, room)
}
