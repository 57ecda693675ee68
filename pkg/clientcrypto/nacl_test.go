package clientcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyWrapRoundTrip(t *testing.T) {
	alice := NewNaClEngine()
	pub, err := alice.GenerateKeyPair()
	require.NoError(t, err)
	require.Equal(t, pub, alice.PublicKey())

	distributor := NewNaClEngine()
	_, err = distributor.GenerateKeyPair()
	require.NoError(t, err)

	roomKey, err := distributor.GenerateRoomKey()
	require.NoError(t, err)
	require.Len(t, roomKey, 32)

	wrapped, err := distributor.WrapKey(roomKey, pub)
	require.NoError(t, err)

	got, err := alice.UnwrapKey(wrapped)
	require.NoError(t, err)
	require.Equal(t, roomKey, got)
}

func TestUnwrapRejectsWrongRecipient(t *testing.T) {
	alice := NewNaClEngine()
	alicePub, err := alice.GenerateKeyPair()
	require.NoError(t, err)

	bob := NewNaClEngine()
	_, err = bob.GenerateKeyPair()
	require.NoError(t, err)

	roomKey, err := alice.GenerateRoomKey()
	require.NoError(t, err)
	wrapped, err := alice.WrapKey(roomKey, alicePub)
	require.NoError(t, err)

	_, err = bob.UnwrapKey(wrapped)
	require.ErrorIs(t, err, ErrUnwrapFailed)
}

func TestMessageRoundTrip(t *testing.T) {
	e := NewNaClEngine()
	roomKey, err := e.GenerateRoomKey()
	require.NoError(t, err)

	content, iv, err := e.EncryptMessage(roomKey, []byte("hello room"))
	require.NoError(t, err)
	require.NotEmpty(t, iv)

	pt, err := e.DecryptMessage(roomKey, content, iv)
	require.NoError(t, err)
	require.Equal(t, []byte("hello room"), pt)

	// rotated key cannot read old ciphertext
	fresh, err := e.GenerateRoomKey()
	require.NoError(t, err)
	_, err = e.DecryptMessage(fresh, content, iv)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestEngineInputValidation(t *testing.T) {
	e := NewNaClEngine()

	_, err := e.UnwrapKey("irrelevant")
	require.ErrorIs(t, err, ErrNoKeyPair)

	_, err = e.WrapKey([]byte("short"), "AAAA")
	require.ErrorIs(t, err, ErrBadRoomKey)

	roomKey, err := e.GenerateRoomKey()
	require.NoError(t, err)

	_, err = e.WrapKey(roomKey, "!!! not base64 !!!")
	require.ErrorIs(t, err, ErrMalformedInput)

	_, err = e.WrapKey(roomKey, "AAAA") // 3 bytes, not a curve point
	require.ErrorIs(t, err, ErrBadPublicKey)

	_, err = e.DecryptMessage(roomKey, "AAAA", "bad-iv")
	require.ErrorIs(t, err, ErrMalformedInput)
}
