package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chatkeys/pkg/apperr"
	"chatkeys/pkg/logger"
	"chatkeys/pkg/models"

	"github.com/cockroachdb/pebble"
)

var db *pebble.DB
var dbPath string

// seq reduces key collisions when multiple messages share the same
// nanosecond timestamp.
var seq uint64

// roomLocks serializes read-modify-write cycles on room metadata. Key
// entries do not take this lock: each lives at its own pebble key and a
// single Set is already atomic, so concurrent sibling upserts commute.
var roomLocks sync.Map // roomID -> *sync.Mutex

func roomLock(roomID string) *sync.Mutex {
	v, _ := roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "err", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func notOpened() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

// Key schema:
//   user:<id>:pubkey                 -> models.PublicKeyRecord
//   room:<id>:meta                   -> models.Room
//   room:<id>:key:<participantID>    -> models.RoomKeyEntry
//   room:<id>:msg:<unix_nano>-<seq>  -> models.Message

func userKeyKey(userID string) []byte {
	return []byte("user:" + userID + ":pubkey")
}

func roomMetaKey(roomID string) []byte {
	return []byte("room:" + roomID + ":meta")
}

func roomKeyEntryKey(roomID, participantID string) []byte {
	return []byte("room:" + roomID + ":key:" + participantID)
}

// SavePublicKey upserts a user's public key record.
func SavePublicKey(rec models.PublicKeyRecord) error {
	if db == nil {
		return notOpened()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal public key record: %w", err)
	}
	if err := db.Set(userKeyKey(rec.UserID), b, pebble.Sync); err != nil {
		logger.Error("save_public_key_failed", "user", rec.UserID, "err", err)
		return err
	}
	publicKeysRegistered.Inc()
	logger.Info("public_key_saved", "user", rec.UserID)
	return nil
}

// GetPublicKey returns the stored record and whether one exists. Absence
// is not an error: callers treat it as "not ready for encryption".
func GetPublicKey(userID string) (models.PublicKeyRecord, bool, error) {
	var rec models.PublicKeyRecord
	if db == nil {
		return rec, false, notOpened()
	}
	v, closer, err := db.Get(userKeyKey(userID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return rec, false, nil
		}
		return rec, false, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &rec); err != nil {
		return rec, false, fmt.Errorf("invalid public key record: %w", err)
	}
	return rec, true, nil
}

// SaveRoom stores room metadata, creating it if absent.
func SaveRoom(room models.Room) error {
	if db == nil {
		return notOpened()
	}
	b, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}
	if err := db.Set(roomMetaKey(room.ID), b, pebble.Sync); err != nil {
		logger.Error("save_room_failed", "room", room.ID, "err", err)
		return err
	}
	logger.Info("room_saved", "room", room.ID)
	return nil
}

// GetRoom returns the stored room or apperr.ErrRoomNotFound.
func GetRoom(roomID string) (models.Room, error) {
	var room models.Room
	if db == nil {
		return room, notOpened()
	}
	v, closer, err := db.Get(roomMetaKey(roomID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return room, apperr.ErrRoomNotFound
		}
		return room, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &room); err != nil {
		return room, fmt.Errorf("invalid room metadata: %w", err)
	}
	return room, nil
}

// MutateRoom applies fn to the room under the room's lock and persists the
// result. The flag flip and its audit fields land in one write; concurrent
// mutations of the same room serialize here instead of racing on the
// whole document.
func MutateRoom(roomID string, fn func(*models.Room) error) (models.Room, error) {
	var zero models.Room
	if db == nil {
		return zero, notOpened()
	}
	mu := roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := GetRoom(roomID)
	if err != nil {
		return zero, err
	}
	if err := fn(&room); err != nil {
		return zero, err
	}
	room.UpdatedTS = time.Now().UTC().UnixNano()
	if err := SaveRoom(room); err != nil {
		return zero, err
	}
	return room, nil
}

// SetRoomKeyEntry upserts one participant's wrapped key. The entry has its
// own pebble key, so the write is atomic per (room, participant) and never
// clobbers a concurrent sibling's insert.
func SetRoomKeyEntry(entry models.RoomKeyEntry) error {
	if db == nil {
		return notOpened()
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal key entry: %w", err)
	}
	if err := db.Set(roomKeyEntryKey(entry.RoomID, entry.ParticipantID), b, pebble.Sync); err != nil {
		logger.Error("set_room_key_failed", "room", entry.RoomID, "participant", entry.ParticipantID, "err", err)
		return err
	}
	roomKeysStored.Inc()
	logger.Info("room_key_saved", "room", entry.RoomID, "participant", entry.ParticipantID)
	return nil
}

// GetRoomKeyEntry returns the wrapped key for one participant, or
// apperr.ErrNoKeyForUser when none is stored.
func GetRoomKeyEntry(roomID, participantID string) (models.RoomKeyEntry, error) {
	var entry models.RoomKeyEntry
	if db == nil {
		return entry, notOpened()
	}
	v, closer, err := db.Get(roomKeyEntryKey(roomID, participantID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return entry, apperr.ErrNoKeyForUser
		}
		return entry, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &entry); err != nil {
		return entry, fmt.Errorf("invalid key entry: %w", err)
	}
	return entry, nil
}

// DeleteRoomKeyEntry removes a participant's wrapped key. Deleting an
// absent entry is not an error, so purge rounds are retryable.
func DeleteRoomKeyEntry(roomID, participantID string) error {
	if db == nil {
		return notOpened()
	}
	if err := db.Delete(roomKeyEntryKey(roomID, participantID), pebble.Sync); err != nil {
		logger.Error("delete_room_key_failed", "room", roomID, "participant", participantID, "err", err)
		return err
	}
	roomKeysPurged.Inc()
	logger.Info("room_key_deleted", "room", roomID, "participant", participantID)
	return nil
}

// ListRoomKeyEntries returns all wrapped-key entries for a room.
func ListRoomKeyEntries(roomID string) ([]models.RoomKeyEntry, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("room:" + roomID + ":key:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.RoomKeyEntry
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var entry models.RoomKeyEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("invalid key entry at %s: %w", iter.Key(), err)
		}
		out = append(out, entry)
	}
	return out, iter.Error()
}

// SaveMessage appends a relayed message to a room with a sortable
// timestamp key. Message bodies are opaque to this layer.
func SaveMessage(roomID string, msg models.Message) error {
	if db == nil {
		return notOpened()
	}
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("room:%s:msg:%020d-%06d", roomID, ts, s)
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := db.Set([]byte(key), b, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "room", roomID, "key", key, "err", err)
		return err
	}
	logger.Info("message_saved", "room", roomID, "msg_id", msg.ID)
	return nil
}

// ListMessages returns all messages for a room in insertion order. A
// positive limit caps the count.
func ListMessages(roomID string, limit ...int) ([]models.Message, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("room:" + roomID + ":msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	max := -1
	if len(limit) > 0 {
		max = limit[0]
	}
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("invalid message at %s: %w", iter.Key(), err)
		}
		out = append(out, m)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, iter.Error()
}

// ListRooms returns all saved rooms. Used by the sweeper; request paths
// use point reads.
func ListRooms() ([]models.Room, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("room:")
	suffix := []byte(":meta")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Room
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !bytes.HasSuffix(iter.Key(), suffix) {
			continue
		}
		var room models.Room
		if err := json.Unmarshal(iter.Value(), &room); err != nil {
			continue
		}
		out = append(out, room)
	}
	return out, iter.Error()
}
