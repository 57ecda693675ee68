package encryption

import (
	"errors"
	"time"

	"chatkeys/pkg/apperr"
	"chatkeys/pkg/models"
	"chatkeys/pkg/store"
	"chatkeys/pkg/validation"
)

// Enable flips the room's encryption gate on and records the transition
// actor and timestamp. It does NOT distribute keys: enabling is cheap and
// synchronous, distribution is a multi-step client-driven round that must
// be retryable on its own.
func Enable(roomID, actingUserID string) (models.Room, error) {
	var zero models.Room
	if err := validation.ValidateRoomID(roomID); err != nil {
		return zero, err
	}
	return store.MutateRoom(roomID, func(room *models.Room) error {
		if !room.HasParticipant(actingUserID) {
			return apperr.ErrNotAParticipant
		}
		room.Encryption.Enabled = true
		room.Encryption.EnabledBy = actingUserID
		room.Encryption.EnabledTS = time.Now().UTC().UnixNano()
		return nil
	})
}

// Disable flips the gate off. Existing wrapped key entries stay in place
// and become inert; they are only purged when their participant leaves.
func Disable(roomID, actingUserID string) (models.Room, error) {
	var zero models.Room
	if err := validation.ValidateRoomID(roomID); err != nil {
		return zero, err
	}
	return store.MutateRoom(roomID, func(room *models.Room) error {
		if !room.HasParticipant(actingUserID) {
			return apperr.ErrNotAParticipant
		}
		room.Encryption.Enabled = false
		room.Encryption.DisabledBy = actingUserID
		room.Encryption.DisabledTS = time.Now().UTC().UnixNano()
		return nil
	})
}

// Status derives the three-valued readiness view for the requester. It is
// recomputed from fresh reads on every call: membership and key
// registration change independently of the enable toggle, so caching any
// of this goes stale.
func Status(roomID, requesterID string) (models.EncryptionStatus, error) {
	var status models.EncryptionStatus
	if err := validation.ValidateRoomID(roomID); err != nil {
		return status, err
	}
	room, err := store.GetRoom(roomID)
	if err != nil {
		return status, err
	}
	if !room.HasParticipant(requesterID) {
		return status, apperr.ErrNotAParticipant
	}

	status.EncryptionEnabled = room.Encryption.Enabled

	status.AllParticipantsHaveKeys = true
	for _, p := range room.Participants {
		_, ok, err := store.GetPublicKey(p)
		if err != nil {
			return models.EncryptionStatus{}, err
		}
		if !ok {
			status.AllParticipantsHaveKeys = false
			break
		}
	}

	_, err = store.GetRoomKeyEntry(roomID, requesterID)
	switch {
	case err == nil:
		status.HasRoomKey = true
	case errors.Is(err, apperr.ErrNoKeyForUser):
		status.HasRoomKey = false
	default:
		return models.EncryptionStatus{}, err
	}
	return status, nil
}
