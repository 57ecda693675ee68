package encryption

import (
	"time"

	"chatkeys/pkg/apperr"
	"chatkeys/pkg/models"
	"chatkeys/pkg/store"
	"chatkeys/pkg/validation"
)

// StoreKey upserts the wrapped room key for one participant. A full
// distribution round is N independent StoreKey calls, each idempotent and
// retryable on its own; the entry is keyed on (room, participant) so
// concurrent calls for different participants never lose each other's
// writes.
func StoreKey(roomID, participantID, encryptedKey, actingUserID string) (models.RoomKeyEntry, error) {
	var zero models.RoomKeyEntry
	if err := validation.ValidateRoomID(roomID); err != nil {
		return zero, err
	}
	if err := validation.ValidateUserID(participantID); err != nil {
		return zero, err
	}
	if err := validation.ValidateEncryptedKey(encryptedKey); err != nil {
		return zero, err
	}
	room, err := store.GetRoom(roomID)
	if err != nil {
		return zero, err
	}
	// Both the acting user and the target must be current members. The
	// target check also covers the race where the participant left between
	// request construction and execution.
	if !room.HasParticipant(actingUserID) || !room.HasParticipant(participantID) {
		return zero, apperr.ErrNotAParticipant
	}

	now := time.Now().UTC().UnixNano()
	entry := models.RoomKeyEntry{
		RoomID:        roomID,
		ParticipantID: participantID,
		EncryptedKey:  encryptedKey,
		CreatedBy:     actingUserID,
		CreatedTS:     now,
		UpdatedTS:     now,
	}
	if prev, err := store.GetRoomKeyEntry(roomID, participantID); err == nil {
		entry.CreatedBy = prev.CreatedBy
		entry.CreatedTS = prev.CreatedTS
	}
	if err := store.SetRoomKeyEntry(entry); err != nil {
		return zero, err
	}
	return entry, nil
}

// GetKey returns the requester's own wrapped key and never another
// participant's. Requires membership and an enabled room; a disabled room
// fails with EncryptionNotEnabled regardless of whether an entry exists,
// and an enabled room without an entry fails with NoKeyForUser so the
// client knows to trigger a distribution round rather than give up.
func GetKey(roomID, requesterID string) (models.RoomKeyEntry, error) {
	var zero models.RoomKeyEntry
	if err := validation.ValidateRoomID(roomID); err != nil {
		return zero, err
	}
	room, err := store.GetRoom(roomID)
	if err != nil {
		return zero, err
	}
	if !room.HasParticipant(requesterID) {
		return zero, apperr.ErrNotAParticipant
	}
	if !room.Encryption.Enabled {
		return zero, apperr.ErrEncryptionNotEnabled
	}
	return store.GetRoomKeyEntry(roomID, requesterID)
}

// ParticipantPublicKeys returns the registered public key of every current
// participant. Participants without a key are omitted; the caller combines
// this with the participant set to learn who is not yet encryption-capable.
func ParticipantPublicKeys(roomID, requesterID string) (map[string]string, error) {
	if err := validation.ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	room, err := store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(requesterID) {
		return nil, apperr.ErrNotAParticipant
	}
	return GetPublicKeys(room.Participants)
}

// PurgeParticipantKey deletes one participant's wrapped key entry. Called
// when a participant leaves so a departed member's wrapped copy does not
// linger for re-use; deleting an absent entry is a no-op.
func PurgeParticipantKey(roomID, participantID string) error {
	if err := validation.ValidateRoomID(roomID); err != nil {
		return err
	}
	return store.DeleteRoomKeyEntry(roomID, participantID)
}
