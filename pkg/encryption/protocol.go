package encryption

import (
	"sort"

	"chatkeys/pkg/models"
	"chatkeys/pkg/store"
)

// Distribution rules. Wrapping happens in the client crypto engine; the
// helpers here implement the parts of the protocol the server is
// authoritative for: who distributes, and which entries are stale.
//
// StoreKey upserts only commute when concurrent distributors carry the
// same underlying room key, so a single distributor must be elected per
// triggering event instead of relying on last-write-wins to reconcile
// divergent keys.

// ElectDistributor picks the participant responsible for a distribution
// round. Preference order: the lowest-id current participant already
// holding a wrapped key (they can re-wrap the existing key without
// generating a new one), then the user who enabled encryption if still a
// member, then the lowest participant id. Deterministic across clients so
// concurrent racers agree on the same winner.
func ElectDistributor(room models.Room, entries []models.RoomKeyEntry) string {
	holder := ""
	for _, e := range entries {
		if !room.HasParticipant(e.ParticipantID) {
			continue
		}
		if holder == "" || e.ParticipantID < holder {
			holder = e.ParticipantID
		}
	}
	if holder != "" {
		return holder
	}
	if room.Encryption.EnabledBy != "" && room.HasParticipant(room.Encryption.EnabledBy) {
		return room.Encryption.EnabledBy
	}
	low := ""
	for _, p := range room.Participants {
		if low == "" || p < low {
			low = p
		}
	}
	return low
}

// DistributeKeys performs one round of StoreKey upserts for the given
// wrapped keys, in sorted participant order for determinism. Each upsert
// is independently idempotent; a partial failure returns the participants
// that were not stored so the caller can retry just those.
func DistributeKeys(roomID, actingUserID string, wrapped map[string]string) (failed []string, err error) {
	participants := make([]string, 0, len(wrapped))
	for p := range wrapped {
		participants = append(participants, p)
	}
	sort.Strings(participants)
	for _, p := range participants {
		if _, serr := StoreKey(roomID, p, wrapped[p], actingUserID); serr != nil {
			failed = append(failed, p)
			err = serr
		}
	}
	return failed, err
}

// OrphanedEntries returns the participant ids of wrapped-key entries whose
// owner is no longer a member of the room. After a removal-triggered
// rotation these are the stale rows that must be purged: a removed member
// keeps their last wrapped copy of the OLD key, but no wrapped copy of the
// rotated key may remain addressed to them.
func OrphanedEntries(room models.Room, entries []models.RoomKeyEntry) []string {
	var out []string
	for _, e := range entries {
		if !room.HasParticipant(e.ParticipantID) {
			out = append(out, e.ParticipantID)
		}
	}
	sort.Strings(out)
	return out
}

// PurgeOrphanedKeys deletes every wrapped-key entry belonging to a
// non-member. Returns the number of entries removed. Used inline on
// participant removal and by the background sweeper for crash windows
// where the inline purge did not run.
func PurgeOrphanedKeys(roomID string) (int, error) {
	room, err := store.GetRoom(roomID)
	if err != nil {
		return 0, err
	}
	entries, err := store.ListRoomKeyEntries(roomID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range OrphanedEntries(room, entries) {
		if err := store.DeleteRoomKeyEntry(roomID, p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
