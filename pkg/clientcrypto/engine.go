// Package clientcrypto defines the contract a chat client's crypto engine
// must satisfy, plus a NaCl reference implementation. The server never
// imports this package from a request path: key generation, wrapping,
// unwrapping and message encryption all happen on the client, and only
// public keys, wrapped keys and ciphertext cross the wire.
package clientcrypto

// Engine is the client-side crypto contract. All string values are
// base64-encoded for the transport boundary.
type Engine interface {
	// GenerateKeyPair creates a fresh asymmetric key pair, retains the
	// private key locally and returns the public key for registration.
	GenerateKeyPair() (publicKey string, err error)

	// PublicKey returns the current public key, or empty if none.
	PublicKey() string

	// GenerateRoomKey creates a fresh symmetric room key. A new key is
	// generated on first enable and again on every rotation; room keys are
	// never reused across rotations.
	GenerateRoomKey() ([]byte, error)

	// WrapKey encrypts roomKey under a recipient's public key. The result
	// is safe to store server-side.
	WrapKey(roomKey []byte, recipientPublicKey string) (string, error)

	// UnwrapKey recovers the room key from a wrapped copy addressed to
	// this engine's key pair.
	UnwrapKey(encryptedKey string) ([]byte, error)

	// EncryptMessage encrypts a message body under the room key. Returns
	// ciphertext and IV, both opaque to the server.
	EncryptMessage(roomKey, plaintext []byte) (content, iv string, err error)

	// DecryptMessage reverses EncryptMessage.
	DecryptMessage(roomKey []byte, content, iv string) ([]byte, error)
}
