package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chatkeys/pkg/apperr"
)

func TestIDValidation(t *testing.T) {
	require.NoError(t, ValidateRoomID("room-123"))
	require.NoError(t, ValidateUserID("alice.smith_01"))

	require.ErrorIs(t, ValidateRoomID(""), apperr.ErrInvalidRoomID)
	require.ErrorIs(t, ValidateRoomID("has space"), apperr.ErrInvalidRoomID)
	require.ErrorIs(t, ValidateRoomID("-leading-dash"), apperr.ErrInvalidRoomID)
	require.ErrorIs(t, ValidateUserID("a/b"), apperr.ErrInvalidUserID)
	require.ErrorIs(t, ValidateUserID(strings.Repeat("x", 129)), apperr.ErrInvalidUserID)
}

func TestPublicKeyValidation(t *testing.T) {
	require.NoError(t, ValidatePublicKey("cHVibGlja2V5"))
	require.ErrorIs(t, ValidatePublicKey("   "), apperr.ErrEmptyPublicKey)

	err := ValidatePublicKey("!!! not base64 !!!")
	require.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestEncryptedKeySizeBound(t *testing.T) {
	old := maxKeyBytes
	t.Cleanup(func() { maxKeyBytes = old })
	SetMaxKeyBytes(16)

	require.NoError(t, ValidateEncryptedKey("c2hvcnQ="))
	err := ValidateEncryptedKey(strings.Repeat("A", 20))
	require.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	// zero and negative keep the current bound
	SetMaxKeyBytes(0)
	require.NoError(t, ValidateEncryptedKey("c2hvcnQ="))
}
