package apperr

var (
	// Domain errors returned by the encryption core and mapped by handlers
	ErrRoomNotFound         = NotFound("chat room not found")
	ErrInvalidRoomID        = InvalidArg("invalid room id format")
	ErrInvalidUserID        = InvalidArg("invalid user id format")
	ErrEmptyPublicKey       = InvalidArg("public key must not be empty")
	ErrEmptyEncryptedKey    = InvalidArg("encrypted key must not be empty")
	ErrNotAParticipant      = Forbidden("not a participant of this room")
	ErrEncryptionNotEnabled = FailedPrecondition("encryption is not enabled for this room")
	ErrNoKeyForUser         = NotFound("no room key stored for this user")
	ErrAlreadyParticipant   = InvalidArg("user is already a participant")
	ErrCallerMismatch       = Forbidden("users may only register their own key")
)
