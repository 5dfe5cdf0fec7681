package core

// network.go – local event broadcast used to surface structured events
// (bridge:*, accountant:*, governance:*) to operators. Events are emitted
// only for successful state changes; an operation that fails returns its
// error without broadcasting anything. Guardians exchange
// observations and VAAs off-chain (spec §1 non-goals); this process never
// gossips to peers, so the libp2p pubsub transport the teacher wired here for
// node-to-node replication has no role to play and is dropped in favor of a
// single broadcast hook callers can redirect to a log sink, a metrics
// exporter, or a test spy.

import (
	"encoding/json"
	"sync"
)

// BroadcasterFunc defines the signature for the global broadcaster.
type BroadcasterFunc func(topic string, data []byte) error

var (
	broadcastMu   sync.RWMutex
	broadcastHook BroadcasterFunc
)

// SetBroadcaster sets the global broadcast hook used by package-level
// Broadcast. Pass nil to disable broadcasting.
func SetBroadcaster(fn BroadcasterFunc) {
	broadcastMu.Lock()
	broadcastHook = fn
	broadcastMu.Unlock()
}

// Broadcast sends an event to the configured broadcaster, if any. A nil
// broadcaster is a no-op rather than an error: emitting operator events is a
// diagnostic aid, not a protocol requirement.
func Broadcast(topic string, data []byte) error {
	broadcastMu.RLock()
	fn := broadcastHook
	broadcastMu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(topic, data)
}

// BroadcastEvent marshals a structured event payload and broadcasts it on
// topic. Callers invoke it after a successful state change; no error path
// in this package calls it. A payload that fails to marshal is dropped.
func BroadcastEvent(topic string, fields map[string]any) {
	data, err := json.Marshal(fields)
	if err != nil {
		return
	}
	_ = Broadcast(topic, data)
}
