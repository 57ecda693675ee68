package models

// RoomKeyEntry holds one participant's wrapped copy of a room's symmetric
// key. There is at most one entry per (room, participant); storing again
// replaces the entry in place.
type RoomKeyEntry struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	// EncryptedKey is the room key wrapped under the participant's public
	// key, base64-encoded. The server never holds the unwrapped key.
	EncryptedKey string `json:"encrypted_key"`
	CreatedBy    string `json:"created_by"`
	CreatedTS    int64  `json:"created_ts"`
	UpdatedTS    int64  `json:"updated_ts"`
}

// EncryptionStatus is the derived readiness view returned to callers.
// It is recomputed on every call; membership and key registration change
// independently of the enable toggle.
type EncryptionStatus struct {
	EncryptionEnabled       bool `json:"encryption_enabled"`
	AllParticipantsHaveKeys bool `json:"all_participants_have_keys"`
	// HasRoomKey is per requester: whether the caller holds a wrapped copy.
	HasRoomKey bool `json:"has_room_key"`
}
