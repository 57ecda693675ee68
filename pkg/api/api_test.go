package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"chatkeys/pkg/auth"
	"chatkeys/pkg/config"
	"chatkeys/pkg/models"
	"chatkeys/pkg/security"
	"chatkeys/pkg/store"
)

const signingSecret = "signsecret"

// setupServer stands up the full middleware chain the way main does:
// API-key security, then signature verification, then the router.
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	config.SetRuntime(&config.RuntimeConfig{
		BackendKeys: map[string]struct{}{signingSecret: {}},
		SigningKeys: map[string]struct{}{signingSecret: {}},
	})

	secCfg := security.SecConfig{
		RPS:          1000,
		Burst:        1000,
		FrontendKeys: map[string]struct{}{"front-key": {}},
		BackendKeys:  map[string]struct{}{signingSecret: {}},
	}
	h := security.AuthenticateRequestMiddleware(secCfg)(auth.RequireSignedUser(Handler()))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func signHMAC(secret, userID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

func doJSON(t *testing.T, method, url, user string, body interface{}) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "front-key")
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-User-Signature", signHMAC(signingSecret, user))
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

func decode(t *testing.T, res *http.Response, v interface{}) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func createRoom(t *testing.T, srv *httptest.Server, creator string, others ...string) models.Room {
	t.Helper()
	res := doJSON(t, http.MethodPost, srv.URL+"/v1/rooms", creator, map[string]interface{}{
		"participants": others,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var room models.Room
	decode(t, res, &room)
	return room
}

func TestHealthzUnauthenticated(t *testing.T) {
	srv := setupServer(t)
	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestRequestsWithoutCredentialsRejected(t *testing.T) {
	srv := setupServer(t)
	res, err := http.Get(srv.URL + "/v1/keys?user_ids=alice")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestBadSignatureRejected(t *testing.T) {
	srv := setupServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/keys?user_ids=alice", nil)
	req.Header.Set("X-API-Key", "front-key")
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("X-User-Signature", "deadbeef")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestRegisterAndFetchKeys(t *testing.T) {
	srv := setupServer(t)

	res := doJSON(t, http.MethodPost, srv.URL+"/v1/keys", "alice", map[string]string{
		"public_key": b64("pk-alice"),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	// registering for someone else is refused
	res = doJSON(t, http.MethodPost, srv.URL+"/v1/keys", "mallory", map[string]string{
		"user_id": "alice", "public_key": b64("pk-evil"),
	})
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, http.MethodGet, srv.URL+"/v1/keys?user_ids=alice,bob", "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out struct {
		Keys map[string]string `json:"keys"`
	}
	decode(t, res, &out)
	require.Equal(t, b64("pk-alice"), out.Keys["alice"])
	require.NotContains(t, out.Keys, "bob")
}

func TestRoomLifecycleAndEncryptionFlow(t *testing.T) {
	srv := setupServer(t)
	room := createRoom(t, srv, "alice", "bob")

	// non-member cannot read the room
	res := doJSON(t, http.MethodGet, srv.URL+"/v1/rooms/"+room.ID, "mallory", nil)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()

	// enable encryption
	res = doJSON(t, http.MethodPost, srv.URL+"/v1/rooms/"+room.ID+"/encryption", "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got models.Room
	decode(t, res, &got)
	require.True(t, got.Encryption.Enabled)

	// store wrapped keys for both members
	for _, p := range []string{"alice", "bob"} {
		res = doJSON(t, http.MethodPut, srv.URL+"/v1/rooms/"+room.ID+"/keys/"+p, "alice", map[string]string{
			"encrypted_key": b64("wrapped-" + p),
		})
		require.Equal(t, http.StatusOK, res.StatusCode)
		res.Body.Close()
	}

	// each member reads only their own copy
	res = doJSON(t, http.MethodGet, srv.URL+"/v1/rooms/"+room.ID+"/keys/me", "bob", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var entry models.RoomKeyEntry
	decode(t, res, &entry)
	require.Equal(t, b64("wrapped-bob"), entry.EncryptedKey)

	// status reflects readiness
	res = doJSON(t, http.MethodPost, srv.URL+"/v1/keys", "alice", map[string]string{"public_key": b64("pk-a")})
	res.Body.Close()
	res = doJSON(t, http.MethodPost, srv.URL+"/v1/keys", "bob", map[string]string{"public_key": b64("pk-b")})
	res.Body.Close()

	res = doJSON(t, http.MethodGet, srv.URL+"/v1/rooms/"+room.ID+"/encryption", "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var st models.EncryptionStatus
	decode(t, res, &st)
	require.True(t, st.EncryptionEnabled)
	require.True(t, st.AllParticipantsHaveKeys)
	require.True(t, st.HasRoomKey)

	// disable closes the key gate even though entries remain
	res = doJSON(t, http.MethodDelete, srv.URL+"/v1/rooms/"+room.ID+"/encryption", "bob", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, http.MethodGet, srv.URL+"/v1/rooms/"+room.ID+"/keys/me", "bob", nil)
	require.Equal(t, http.StatusPreconditionFailed, res.StatusCode)
	res.Body.Close()
}

func TestStoreKeyRequiresMembership(t *testing.T) {
	srv := setupServer(t)
	room := createRoom(t, srv, "alice", "bob")

	// outsider acting
	res := doJSON(t, http.MethodPut, srv.URL+"/v1/rooms/"+room.ID+"/keys/bob", "mallory", map[string]string{
		"encrypted_key": b64("w"),
	})
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()

	// target not a member
	res = doJSON(t, http.MethodPut, srv.URL+"/v1/rooms/"+room.ID+"/keys/carol", "alice", map[string]string{
		"encrypted_key": b64("w"),
	})
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()
}

func TestParticipantRemovalPurgesWrappedKey(t *testing.T) {
	srv := setupServer(t)
	room := createRoom(t, srv, "alice", "bob", "eve")

	res := doJSON(t, http.MethodPost, srv.URL+"/v1/rooms/"+room.ID+"/encryption", "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	for _, p := range []string{"alice", "bob", "eve"} {
		res = doJSON(t, http.MethodPut, srv.URL+"/v1/rooms/"+room.ID+"/keys/"+p, "alice", map[string]string{
			"encrypted_key": b64("w-" + p),
		})
		require.Equal(t, http.StatusOK, res.StatusCode)
		res.Body.Close()
	}

	res = doJSON(t, http.MethodDelete, srv.URL+"/v1/rooms/"+room.ID+"/participants/eve", "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	entries, err := store.ListRoomKeyEntries(room.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotEqual(t, "eve", e.ParticipantID)
	}

	// eve is locked out of everything room-scoped now
	res = doJSON(t, http.MethodGet, srv.URL+"/v1/rooms/"+room.ID+"/keys/me", "eve", nil)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()
}

func TestEncryptedRoomRejectsPlaintextMessages(t *testing.T) {
	srv := setupServer(t)
	room := createRoom(t, srv, "alice", "bob")

	res := doJSON(t, http.MethodPost, srv.URL+"/v1/rooms/"+room.ID+"/messages", "alice", map[string]interface{}{
		"content": "hello",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, http.MethodPost, srv.URL+"/v1/rooms/"+room.ID+"/encryption", "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, http.MethodPost, srv.URL+"/v1/rooms/"+room.ID+"/messages", "alice", map[string]interface{}{
		"content": "hello again",
	})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, http.MethodPost, srv.URL+"/v1/rooms/"+room.ID+"/messages", "bob", map[string]interface{}{
		"content": b64("ciphertext"), "iv": b64("nonce"), "is_encrypted": true,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, http.MethodGet, srv.URL+"/v1/rooms/"+room.ID+"/messages", "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out struct {
		Room     string           `json:"room"`
		Messages []models.Message `json:"messages"`
	}
	decode(t, res, &out)
	require.Len(t, out.Messages, 2)
	require.True(t, out.Messages[1].IsEncrypted)
	require.Equal(t, "bob", out.Messages[1].Author)
}
