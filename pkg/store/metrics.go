package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation counters exposed at /metrics. Key material itself never
// appears in a metric label.
var (
	publicKeysRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatkeys_public_keys_registered_total",
		Help: "Number of public key upserts.",
	})
	roomKeysStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatkeys_room_keys_stored_total",
		Help: "Number of wrapped room key upserts.",
	})
	roomKeysPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatkeys_room_keys_purged_total",
		Help: "Number of wrapped room key entries deleted.",
	})
)
