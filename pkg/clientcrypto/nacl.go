package clientcrypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

const roomKeySize = 32

var (
	ErrNoKeyPair      = errors.New("clientcrypto: no key pair generated")
	ErrBadPublicKey   = errors.New("clientcrypto: recipient public key must be 32 bytes")
	ErrBadRoomKey     = errors.New("clientcrypto: room key must be 32 bytes")
	ErrUnwrapFailed   = errors.New("clientcrypto: unwrap failed")
	ErrDecryptFailed  = errors.New("clientcrypto: decrypt failed")
	ErrMalformedInput = errors.New("clientcrypto: malformed base64 input")
)

// NaClEngine implements Engine with X25519 sealed boxes for key wrapping
// and XSalsa20-Poly1305 secretbox for message bodies.
type NaClEngine struct {
	pub  *[32]byte
	priv *[32]byte
}

// NewNaClEngine returns an engine with no key pair yet.
func NewNaClEngine() *NaClEngine { return &NaClEngine{} }

func (e *NaClEngine) GenerateKeyPair() (string, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", err
	}
	e.pub, e.priv = pub, priv
	return base64.StdEncoding.EncodeToString(pub[:]), nil
}

func (e *NaClEngine) PublicKey() string {
	if e.pub == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(e.pub[:])
}

func (e *NaClEngine) GenerateRoomKey() ([]byte, error) {
	key := make([]byte, roomKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (e *NaClEngine) WrapKey(roomKey []byte, recipientPublicKey string) (string, error) {
	if len(roomKey) != roomKeySize {
		return "", ErrBadRoomKey
	}
	pk, err := base64.StdEncoding.DecodeString(recipientPublicKey)
	if err != nil {
		return "", ErrMalformedInput
	}
	if len(pk) != 32 {
		return "", ErrBadPublicKey
	}
	var recipient [32]byte
	copy(recipient[:], pk)
	sealed, err := box.SealAnonymous(nil, roomKey, &recipient, rand.Reader)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *NaClEngine) UnwrapKey(encryptedKey string) ([]byte, error) {
	if e.priv == nil {
		return nil, ErrNoKeyPair
	}
	sealed, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, ErrMalformedInput
	}
	key, ok := box.OpenAnonymous(nil, sealed, e.pub, e.priv)
	if !ok {
		return nil, ErrUnwrapFailed
	}
	if len(key) != roomKeySize {
		return nil, ErrUnwrapFailed
	}
	return key, nil
}

func (e *NaClEngine) EncryptMessage(roomKey, plaintext []byte) (string, string, error) {
	if len(roomKey) != roomKeySize {
		return "", "", ErrBadRoomKey
	}
	var key [32]byte
	copy(key[:], roomKey)
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", "", err
	}
	ct := secretbox.Seal(nil, plaintext, &nonce, &key)
	return base64.StdEncoding.EncodeToString(ct), base64.StdEncoding.EncodeToString(nonce[:]), nil
}

func (e *NaClEngine) DecryptMessage(roomKey []byte, content, iv string) ([]byte, error) {
	if len(roomKey) != roomKeySize {
		return nil, ErrBadRoomKey
	}
	ct, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, ErrMalformedInput
	}
	nb, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(nb) != 24 {
		return nil, ErrMalformedInput
	}
	var key [32]byte
	copy(key[:], roomKey)
	var nonce [24]byte
	copy(nonce[:], nb)
	pt, ok := secretbox.Open(nil, ct, &nonce, &key)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return pt, nil
}
