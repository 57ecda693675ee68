package validation

import (
	"encoding/base64"
	"regexp"
	"strings"

	"chatkeys/pkg/apperr"
)

// ids are opaque to the server but must be URL- and key-safe: they are
// embedded in pebble key paths and mux routes.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

var maxKeyBytes int64 = 8192

// SetMaxKeyBytes configures the upper bound for encoded key material.
// Zero or negative keeps the default.
func SetMaxKeyBytes(n int64) {
	if n > 0 {
		maxKeyBytes = n
	}
}

// ValidateRoomID reports whether id is a well-formed room id.
func ValidateRoomID(id string) error {
	if !idPattern.MatchString(id) {
		return apperr.ErrInvalidRoomID
	}
	return nil
}

// ValidateUserID reports whether id is a well-formed user id.
func ValidateUserID(id string) error {
	if !idPattern.MatchString(id) {
		return apperr.ErrInvalidUserID
	}
	return nil
}

// ValidatePublicKey checks a base64-encoded public key: non-empty, valid
// encoding, bounded size.
func ValidatePublicKey(b64 string) error {
	if strings.TrimSpace(b64) == "" {
		return apperr.ErrEmptyPublicKey
	}
	if int64(len(b64)) > maxKeyBytes {
		return apperr.InvalidArg("public key exceeds maximum size")
	}
	if _, err := base64.StdEncoding.DecodeString(b64); err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, "public key is not valid base64", err)
	}
	return nil
}

// ValidateEncryptedKey checks a base64-encoded wrapped room key.
func ValidateEncryptedKey(b64 string) error {
	if strings.TrimSpace(b64) == "" {
		return apperr.ErrEmptyEncryptedKey
	}
	if int64(len(b64)) > maxKeyBytes {
		return apperr.InvalidArg("encrypted key exceeds maximum size")
	}
	if _, err := base64.StdEncoding.DecodeString(b64); err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, "encrypted key is not valid base64", err)
	}
	return nil
}
