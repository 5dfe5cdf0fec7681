package core

// bridge_pending_aggregator.go – the pending-observation aggregator (spec
// §4.H): guardians independently observe a transfer on its source chain and
// submit signed observations; once a guardian-set quorum of signers agree
// on the same digest for a (emitter_chain, emitter_address, sequence) key,
// the transfer is committed to the ledger exactly once. Grounded on
// bridge_signature.go's VAA quorum check, generalized from "N signatures
// bundled in one envelope" to "N signatures arriving one at a time against
// a bitset", using github.com/bits-and-blooms/bitset — already an indirect
// dependency of the teacher's go.mod — for the per-sub-entry signer set.

import (
	"encoding/json"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
)

// TransferKey identifies one cross-chain transfer across both the
// aggregator and the ledger: the emitter that reported it and its sequence
// number on that emitter's chain.
type TransferKey struct {
	EmitterChain   uint16          `json:"emitter_chain"`
	EmitterAddress ExternalAddress `json:"emitter_address"`
	Sequence       uint64          `json:"sequence"`
}

func (k TransferKey) String() string {
	return fmt.Sprintf("%d:%s:%d", k.EmitterChain, k.EmitterAddress.String(), k.Sequence)
}

// Observation is one guardian's independently-observed view of a transfer,
// submitted for aggregation rather than arriving pre-bundled in a VAA.
type Observation struct {
	TxHash         Hash
	TokenChain     uint16
	TokenAddress   ExternalAddress
	Amount         *NormalizedAmount
	RecipientChain uint16
	Recipient      ExternalAddress
}

func (o *Observation) digest() Hash {
	buf := EncodeTransferPayload(&TransferPayload{
		Amount:         o.Amount,
		TokenChain:     o.TokenChain,
		TokenAddress:   o.TokenAddress,
		RecipientChain: o.RecipientChain,
		Recipient:      o.Recipient,
		Fee:            ZeroAmount(),
	})
	return doubleKeccak(append(o.TxHash[:], buf...))
}

// pendingSubEntry is the persisted form of one (key, digest, tx_hash,
// guardian_set_index) bucket: every guardian observing the same transfer
// the same way accumulates into the same bucket's signer bitset.
type pendingSubEntry struct {
	Digest           Hash     `json:"digest"`
	TxHash           Hash     `json:"tx_hash"`
	GuardianSetIndex uint32   `json:"guardian_set_index"`
	Observation      Observation `json:"observation"`
	SignerWords      []uint64 `json:"signer_words"`
}

func pendingSubEntryKey(key TransferKey, digest Hash, guardianSetIndex uint32) []byte {
	return []byte(fmt.Sprintf("pending:%s:%x:%d", key.String(), digest[:], guardianSetIndex))
}

func loadPendingSubEntry(key TransferKey, digest Hash, guardianSetIndex uint32) (*pendingSubEntry, error) {
	raw, err := CurrentStore().Get(pendingSubEntryKey(key, digest, guardianSetIndex))
	if err != nil {
		return nil, ErrNotFound
	}
	var e pendingSubEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func savePendingSubEntry(key TransferKey, e *pendingSubEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return CurrentStore().Set(pendingSubEntryKey(key, e.Digest, e.GuardianSetIndex), raw)
}

// ObservationBatchItem pairs one observation with the transfer key it
// belongs to, the unit SubmitObservations operates over (spec §4.H
// "submit(observations, guardian_set_index, signature)").
type ObservationBatchItem struct {
	Key         TransferKey
	Observation Observation
}

// ObservationResult is one batch item's outcome: Err is nil when the
// observation was recorded (and, if it reached quorum, committed), or the
// error that item alone failed with.
type ObservationResult struct {
	Key TransferKey
	Err error
}

// batchDigest hashes the ordered sequence of (key, observation) pairs a
// single guardian signature authenticates, so a batch of many independent
// transfer observations can be vouched for with one signature instead of
// one per transfer.
func batchDigest(items []ObservationBatchItem) Hash {
	buf := make([]byte, 0, len(items)*72)
	for _, item := range items {
		buf = append(buf, []byte(item.Key.String())...)
		d := item.Observation.digest()
		buf = append(buf, d[:]...)
	}
	return doubleKeccak(buf)
}

// SubmitObservations records a batch of guardian-observed transfers
// authenticated by a single signature over the whole batch (spec §4.H): one
// guardian vouches for every observation in items at once, rather than
// signing each transfer individually. The signature is verified exactly
// once; after that, each observation is applied to its own pending entry
// independently, so one bad observation does not sink the rest of the batch
// - per-item failures are reported in the returned slice rather than
// failing the call. Once the bitset for a given (key, digest,
// guardian_set_index) bucket reaches the guardian set's quorum, that
// transfer is atomically committed to the ledger and recorded in the replay
// store so a later quorum-worth of signatures for the same key can never
// commit twice.
func SubmitObservations(items []ObservationBatchItem, guardianSetIndex uint32, guardianIndex uint8, signature [65]byte) ([]ObservationResult, error) {
	logger := zap.L().Sugar()

	if len(items) == 0 {
		return nil, ErrEmptyObservationBatch
	}

	gs, err := GetGuardianSet(guardianSetIndex)
	if err != nil {
		return nil, err
	}
	if int(guardianIndex) >= len(gs.Addresses) {
		return nil, ErrGuardianSignatureError
	}

	digest := batchDigest(items)
	recovered, err := recoverGuardianAddress(digest, signature)
	if err != nil {
		return nil, err
	}
	if recovered != gs.Addresses[guardianIndex] {
		return nil, ErrGuardianSignatureError
	}

	results := make([]ObservationResult, len(items))
	for i, item := range items {
		results[i] = ObservationResult{
			Key: item.Key,
			Err: applyObservation(item.Key, item.Observation, guardianSetIndex, guardianIndex, gs, logger),
		}
	}
	return results, nil
}

// applyObservation accumulates one already-authenticated observation into
// its (key, digest, guardian_set_index) bucket and commits the transfer once
// that bucket reaches quorum.
func applyObservation(key TransferKey, obs Observation, guardianSetIndex uint32, guardianIndex uint8, gs *GuardianSet, logger *zap.SugaredLogger) error {
	if IsCommitted(key) {
		return ErrDuplicateTransfer
	}

	digest := obs.digest()
	entry, err := loadPendingSubEntry(key, digest, guardianSetIndex)
	if err != nil {
		entry = &pendingSubEntry{
			Digest:           digest,
			TxHash:           obs.TxHash,
			GuardianSetIndex: guardianSetIndex,
			Observation:      obs,
			SignerWords:      nil,
		}
	}

	signers := bitset.From(entry.SignerWords)
	signers.Set(uint(guardianIndex))
	entry.SignerWords = signers.Bytes()

	if err := savePendingSubEntry(key, entry); err != nil {
		return err
	}

	if int(signers.Count()) < gs.Quorum() {
		return nil
	}

	t := &Transfer{
		Key:          key,
		SourceChain:  key.EmitterChain,
		DestChain:    obs.RecipientChain,
		TokenChain:   obs.TokenChain,
		TokenAddress: obs.TokenAddress,
		Amount:       obs.Amount,
	}
	if err := ClaimVAA(key.EmitterChain, key.EmitterAddress, key.Sequence, digest); err != nil {
		if err == ErrDuplicateMessage {
			return nil
		}
		return err
	}
	if err := CommitTransfer(t); err != nil {
		_ = CurrentStore().Delete(claimKey(key.EmitterChain, key.EmitterAddress, key.Sequence))
		return err
	}
	it := CurrentStore().Iterator([]byte(fmt.Sprintf("pending:%s:", key.String())), nil)
	for it.Next() {
		if err := CurrentStore().Delete(it.Key()); err != nil {
			it.Close()
			return err
		}
	}
	it.Close()
	logger.Infof("accountant committed transfer key=%s quorum=%d/%d", key.String(), signers.Count(), len(gs.Addresses))
	return nil
}

// PendingBucket is the caller-facing view of one (digest, tx_hash,
// guardian_set_index) bucket accumulating observations toward quorum,
// returned by ListPending (spec §6 "GET /api/accountant/pending/...").
type PendingBucket struct {
	Digest           Hash
	TxHash           Hash
	GuardianSetIndex uint32
	Observation      Observation
	Signers          int
}

// ListPending returns every bucket currently accumulating observations for
// key, across every digest and guardian set index guardians have reported
// under it. An empty, nil-error result means no observation has arrived yet
// (distinct from a commit, which ListPending never reports — see IsCommitted).
func ListPending(key TransferKey) ([]PendingBucket, error) {
	prefix := []byte(fmt.Sprintf("pending:%s:", key.String()))
	it := CurrentStore().Iterator(prefix, nil)
	defer it.Close()

	var out []PendingBucket
	for it.Next() {
		var e pendingSubEntry
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			return nil, err
		}
		out = append(out, PendingBucket{
			Digest:           e.Digest,
			TxHash:           e.TxHash,
			GuardianSetIndex: e.GuardianSetIndex,
			Observation:      e.Observation,
			Signers:          int(bitset.From(e.SignerWords).Count()),
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitVAA is the alternate direct-commit entry point (spec §4.H
// "submit_vaas"): when a full VAA for a transfer is already available and
// independently verified, the accountant can commit it straight to the
// ledger without going through the per-observation bitset path.
func SubmitVAA(vaa *ParsedVAA, guardianSet *GuardianSet, now int64) error {
	if err := VerifyVAA(vaa, guardianSet, now); err != nil {
		return err
	}
	key := TransferKey{EmitterChain: vaa.EmitterChain, EmitterAddress: vaa.EmitterAddress, Sequence: vaa.Sequence}
	if IsCommitted(key) {
		return ErrDuplicateTransfer
	}
	if len(vaa.Payload) == 0 || vaa.Payload[0] != ActionTransfer {
		return ErrInvalidVAAAction
	}
	p, err := DecodeTransferPayload(vaa.Payload[1:])
	if err != nil {
		return err
	}
	if err := ClaimVAA(vaa.EmitterChain, vaa.EmitterAddress, vaa.Sequence, vaa.Digest); err != nil {
		return err
	}
	return CommitTransfer(&Transfer{
		Key:          key,
		SourceChain:  vaa.EmitterChain,
		DestChain:    p.RecipientChain,
		TokenChain:   p.TokenChain,
		TokenAddress: p.TokenAddress,
		Amount:       p.Amount,
	})
}
