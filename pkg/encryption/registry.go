// Package encryption implements the server side of the end-to-end chat
// encryption protocol: public key registration, per-room wrapped key
// storage, the room encryption state machine and the distribution rules.
//
// The server never holds unwrapped key material. It stores public keys and
// wrapped room keys and enforces who may read or write them; wrapping and
// unwrapping happen in the client crypto engine.
package encryption

import (
	"time"

	"chatkeys/pkg/apperr"
	"chatkeys/pkg/models"
	"chatkeys/pkg/store"
	"chatkeys/pkg/validation"
)

// RegisterPublicKey upserts the acting user's public key. A user may only
// register their own key; re-registration overwrites the previous key and
// bumps the registration timestamp. No key history is kept.
func RegisterPublicKey(actingUserID, userID, publicKey string) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return err
	}
	if actingUserID != userID {
		return apperr.ErrCallerMismatch
	}
	if err := validation.ValidatePublicKey(publicKey); err != nil {
		return err
	}
	return store.SavePublicKey(models.PublicKeyRecord{
		UserID:       userID,
		PublicKey:    publicKey,
		RegisteredTS: time.Now().UTC().UnixNano(),
	})
}

// GetPublicKeys returns the registered public keys for the requested users.
// Users without a registered key are simply absent from the result; absence
// means "not ready for encryption", never an error.
func GetPublicKeys(userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if err := validation.ValidateUserID(id); err != nil {
			return nil, err
		}
		rec, ok, err := store.GetPublicKey(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = rec.PublicKey
		}
	}
	return out, nil
}
