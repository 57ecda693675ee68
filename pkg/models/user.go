package models

// PublicKeyRecord is the registered asymmetric public key for one user.
// A user has at most one active key; re-registering overwrites in place.
type PublicKeyRecord struct {
	UserID string `json:"user_id"`
	// PublicKey is base64-encoded at the transport boundary.
	PublicKey string `json:"public_key"`
	// RegisteredTS is set on every (re)write (ns).
	RegisteredTS int64 `json:"registered_ts"`
}
