package core

// bridge_guardian_set.go – the guardian set registry (spec §4.A/§4.B): the
// rotating set of guardian addresses a VAA's signatures are checked against,
// indexed by a monotonically increasing guardian_set_index. Grounded on the
// teacher's module-address-keyed registries in cross_chain_contracts.go,
// generalized to carry the expiration-window rule spec §4.B requires on
// rotation.

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// GuardianSet is one version of the guardian quorum: the set of addresses
// whose signatures a VAA referencing Index must satisfy, plus the window
// during which a superseded set is still honored (spec §4.B).
type GuardianSet struct {
	Index          uint32    `json:"index"`
	Addresses      []Address `json:"addresses"`
	CreatedAt      int64     `json:"created_at"`
	ExpirationTime int64     `json:"expiration_time"`
}

// Quorum returns the minimum number of signatures required for this set:
// floor(2n/3)+1 (spec §4.B).
func (gs *GuardianSet) Quorum() int {
	return len(gs.Addresses)*2/3 + 1
}

// IsExpiredAt reports whether this set's expiration window has passed as of
// now. A zero ExpirationTime means the set has no expiration (it is the
// current active set).
func (gs *GuardianSet) IsExpiredAt(now int64) bool {
	return gs.ExpirationTime != 0 && now >= gs.ExpirationTime
}

func guardianSetKey(index uint32) []byte {
	return []byte(fmt.Sprintf("guardian_set:%d", index))
}

const currentGuardianSetIndexKey = "guardian_set:current_index"

// SetGuardianSet installs a new guardian set. Per spec §4.B, installing
// index N+1 sets index N's ExpirationTime to now+expirationWindow rather
// than revoking it immediately, so VAAs already in flight under the old set
// remain valid for the grace window. index must be exactly one greater than
// the current index (guardian set indices are monotonic and gapless).
func SetGuardianSet(gs *GuardianSet, now int64, expirationWindow int64) error {
	logger := zap.L().Sugar()

	cur, err := CurrentGuardianSetIndex()
	if err == nil {
		if gs.Index != cur+1 {
			return fmt.Errorf("governance: guardian set index must advance by exactly 1 (have %d, want %d)", gs.Index, cur+1)
		}
		prev, err := GetGuardianSet(cur)
		if err != nil {
			return err
		}
		prev.ExpirationTime = now + expirationWindow
		if err := persistGuardianSet(prev); err != nil {
			return err
		}
	} else if gs.Index != 0 {
		return fmt.Errorf("governance: first guardian set must have index 0")
	}

	gs.CreatedAt = now
	gs.ExpirationTime = 0
	if err := persistGuardianSet(gs); err != nil {
		return err
	}
	if err := CurrentStore().Set([]byte(currentGuardianSetIndexKey), encodeUint32(gs.Index)); err != nil {
		return err
	}
	BroadcastEvent("governance:guardian_set_update", map[string]any{"index": gs.Index, "n": len(gs.Addresses)})
	logger.Infof("installed guardian set %d with %d guardians", gs.Index, len(gs.Addresses))
	return nil
}

func persistGuardianSet(gs *GuardianSet) error {
	raw, err := json.Marshal(gs)
	if err != nil {
		return err
	}
	return CurrentStore().Set(guardianSetKey(gs.Index), raw)
}

// GetGuardianSet retrieves a guardian set by index.
func GetGuardianSet(index uint32) (*GuardianSet, error) {
	raw, err := CurrentStore().Get(guardianSetKey(index))
	if err != nil {
		return nil, ErrInvalidGuardianSetIndex
	}
	var gs GuardianSet
	if err := json.Unmarshal(raw, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// CurrentGuardianSetIndex returns the index of the most recently installed
// guardian set.
func CurrentGuardianSetIndex() (uint32, error) {
	raw, err := CurrentStore().Get([]byte(currentGuardianSetIndexKey))
	if err != nil {
		return 0, ErrNotFound
	}
	return decodeUint32(raw), nil
}

// CurrentGuardianSet returns the most recently installed guardian set.
func CurrentGuardianSet() (*GuardianSet, error) {
	idx, err := CurrentGuardianSetIndex()
	if err != nil {
		return nil, err
	}
	return GetGuardianSet(idx)
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func decodeUint32(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
