package models

// EncryptionState is the persisted two-state machine for a room.
// Readiness is never stored here; it is derived per request.
type EncryptionState struct {
	Enabled    bool   `json:"enabled"`
	EnabledBy  string `json:"enabled_by,omitempty"`
	EnabledTS  int64  `json:"enabled_ts,omitempty"`
	DisabledBy string `json:"disabled_by,omitempty"`
	DisabledTS int64  `json:"disabled_ts,omitempty"`
}

type Room struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	// CreatedBy is an opaque identity id (clients manage meaning)
	CreatedBy string `json:"created_by"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - last time metadata or membership changed
	UpdatedTS int64 `json:"updated_ts,omitempty"`
	// Participants is the current member set. Encryption logic only ever
	// acts on ids present here.
	Participants []string `json:"participants"`

	Encryption EncryptionState `json:"encryption"`
}

// HasParticipant reports whether userID is a current member.
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
