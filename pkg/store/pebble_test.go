package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatkeys/pkg/apperr"
	"chatkeys/pkg/models"
)

func setup(t *testing.T) {
	t.Helper()
	require.NoError(t, Open(t.TempDir()))
	t.Cleanup(func() { _ = Close() })
}

func TestPublicKeyAbsenceIsNotAnError(t *testing.T) {
	setup(t)

	_, ok, err := GetPublicKey("nobody")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, SavePublicKey(models.PublicKeyRecord{
		UserID: "alice", PublicKey: "cGs=", RegisteredTS: 1,
	}))
	rec, ok, err := GetPublicKey("alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cGs=", rec.PublicKey)
}

func TestGetRoomNotFound(t *testing.T) {
	setup(t)
	_, err := GetRoom("missing")
	require.ErrorIs(t, err, apperr.ErrRoomNotFound)
}

func TestMutateRoomPersistsAndStamps(t *testing.T) {
	setup(t)
	require.NoError(t, SaveRoom(models.Room{ID: "r1", Participants: []string{"a"}}))

	room, err := MutateRoom("r1", func(r *models.Room) error {
		r.Participants = append(r.Participants, "b")
		return nil
	})
	require.NoError(t, err)
	require.NotZero(t, room.UpdatedTS)

	got, err := GetRoom("r1")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got.Participants)
}

func TestMutateRoomErrorDiscardsChanges(t *testing.T) {
	setup(t)
	require.NoError(t, SaveRoom(models.Room{ID: "r1", Participants: []string{"a"}}))

	_, err := MutateRoom("r1", func(r *models.Room) error {
		r.Participants = nil
		return apperr.ErrNotAParticipant
	})
	require.ErrorIs(t, err, apperr.ErrNotAParticipant)

	got, err := GetRoom("r1")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, got.Participants)
}

func TestRoomKeyEntryLifecycle(t *testing.T) {
	setup(t)

	_, err := GetRoomKeyEntry("r1", "alice")
	require.ErrorIs(t, err, apperr.ErrNoKeyForUser)

	require.NoError(t, SetRoomKeyEntry(models.RoomKeyEntry{
		RoomID: "r1", ParticipantID: "alice", EncryptedKey: "dzE=", CreatedBy: "alice",
	}))
	require.NoError(t, SetRoomKeyEntry(models.RoomKeyEntry{
		RoomID: "r1", ParticipantID: "bob", EncryptedKey: "dzI=", CreatedBy: "alice",
	}))

	entry, err := GetRoomKeyEntry("r1", "alice")
	require.NoError(t, err)
	require.Equal(t, "dzE=", entry.EncryptedKey)

	entries, err := ListRoomKeyEntries("r1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, DeleteRoomKeyEntry("r1", "alice"))
	_, err = GetRoomKeyEntry("r1", "alice")
	require.ErrorIs(t, err, apperr.ErrNoKeyForUser)

	// deleting again is a no-op
	require.NoError(t, DeleteRoomKeyEntry("r1", "alice"))
}

func TestKeyEntriesDoNotLeakAcrossRooms(t *testing.T) {
	setup(t)
	require.NoError(t, SetRoomKeyEntry(models.RoomKeyEntry{RoomID: "r1", ParticipantID: "alice", EncryptedKey: "YQ=="}))
	require.NoError(t, SetRoomKeyEntry(models.RoomKeyEntry{RoomID: "r2", ParticipantID: "alice", EncryptedKey: "Yg=="}))

	entries, err := ListRoomKeyEntries("r1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "YQ==", entries[0].EncryptedKey)
}

func TestMessagesOrderedAndLimited(t *testing.T) {
	setup(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, SaveMessage("r1", models.Message{
			ID: string(rune('a' + i)), Room: "r1", TS: time.Now().UnixNano(),
		}))
	}
	msgs, err := ListMessages("r1")
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	require.Equal(t, "a", msgs[0].ID)
	require.Equal(t, "e", msgs[4].ID)

	msgs, err = ListMessages("r1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "a", msgs[0].ID)
}

func TestListRoomsSkipsNonMetaKeys(t *testing.T) {
	setup(t)
	require.NoError(t, SaveRoom(models.Room{ID: "r1", Participants: []string{"a"}}))
	require.NoError(t, SaveRoom(models.Room{ID: "r2", Participants: []string{"b"}}))
	require.NoError(t, SetRoomKeyEntry(models.RoomKeyEntry{RoomID: "r1", ParticipantID: "a", EncryptedKey: "YQ=="}))
	require.NoError(t, SaveMessage("r1", models.Message{ID: "m1", Room: "r1"}))

	rooms, err := ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 2)
}
