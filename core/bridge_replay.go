package core

// bridge_replay.go – the replay/claim store (spec §4.C): once a VAA digest
// has been executed for a given (emitter_chain, emitter_address, sequence)
// key, a second submission must be rejected rather than re-applied.
// Grounded on the teacher's RegisterChainContract one-time-registration
// idiom (check-then-set against the KVStore), generalized from a single
// boolean flag to a key -> digest mapping so a mismatched resubmission
// under the same key is distinguishable from a plain duplicate.

import (
	"encoding/hex"
	"fmt"
)

func claimKey(emitterChain uint16, emitterAddress ExternalAddress, sequence uint64) []byte {
	return []byte(fmt.Sprintf("claim:%d:%s:%d", emitterChain, hex.EncodeToString(emitterAddress[:]), sequence))
}

// HasBeenExecuted reports whether a VAA for this (chain, address, sequence)
// key has already been committed.
func HasBeenExecuted(emitterChain uint16, emitterAddress ExternalAddress, sequence uint64) bool {
	_, err := CurrentStore().Get(claimKey(emitterChain, emitterAddress, sequence))
	return err == nil
}

// ClaimVAA records digest as executed for (chain, address, sequence). A
// second claim under the same key is rejected: ErrDigestMismatch if the
// digest differs from the one already recorded (a guardian set fork or a
// forged resubmission), ErrDuplicateMessage if it is identical (an honest
// retry of an already-processed message).
func ClaimVAA(emitterChain uint16, emitterAddress ExternalAddress, sequence uint64, digest Hash) error {
	key := claimKey(emitterChain, emitterAddress, sequence)
	existing, err := CurrentStore().Get(key)
	if err == nil {
		if bytesToHash(existing) != digest {
			return ErrDigestMismatch
		}
		return ErrDuplicateMessage
	}
	return CurrentStore().Set(key, digest[:])
}

func bytesToHash(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}
