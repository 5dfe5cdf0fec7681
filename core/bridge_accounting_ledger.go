package core

// bridge_accounting_ledger.go – the global accountant's double-entry ledger
// (spec §4.H/§4.I): one account per (chain, token_chain, token_address)
// tracking either custody (on the token's chain of origin) or outstanding
// wrapped supply (everywhere else), debited and credited in lockstep so a
// chain can never report more minted supply than was ever locked up
// elsewhere. Grounded on the teacher's escrow-then-mint pairing in
// cross_chain_bridge.go, generalized from a single escrow address into a
// full per-asset, per-chain account table.

import (
	"encoding/json"
	"fmt"
)

// AccountKey identifies one ledger account: how much of the asset
// identified by (token_chain, token_address) chain_id is holding in
// custody (if chain_id == token_chain) or has minted as a wrapped
// representation (otherwise).
type AccountKey struct {
	ChainID      uint16          `json:"chain_id"`
	TokenChain   uint16          `json:"token_chain"`
	TokenAddress ExternalAddress `json:"token_address"`
}

func accountStoreKey(k AccountKey) []byte {
	return []byte(fmt.Sprintf("account:%d:%d:%s", k.ChainID, k.TokenChain, k.TokenAddress.String()))
}

// GetBalance returns the current balance of account k, or zero if the
// account has never been touched.
func GetBalance(k AccountKey) (*NormalizedAmount, error) {
	raw, err := CurrentStore().Get(accountStoreKey(k))
	if err != nil {
		return ZeroAmount(), nil
	}
	return AmountFromBytes32(raw)
}

// accountExists reports whether k has ever been credited or debited,
// distinct from GetBalance's zero-on-miss convenience: a zero balance on an
// account that has been touched before is not the same as an account that
// has never been created.
func accountExists(k AccountKey) bool {
	_, err := CurrentStore().Get(accountStoreKey(k))
	return err == nil
}

func setBalance(k AccountKey, amount *NormalizedAmount) error {
	b32 := amount.Bytes32()
	return CurrentStore().Set(accountStoreKey(k), b32[:])
}

// Transfer is the ledger-level record of a cross-chain movement the
// accountant has reached quorum on (spec §4.H), independent of the VAA
// machinery: it is what CommitTransfer actually applies.
type Transfer struct {
	Key          TransferKey     `json:"key"`
	SourceChain  uint16          `json:"source_chain"`
	DestChain    uint16          `json:"dest_chain"`
	TokenChain   uint16          `json:"token_chain"`
	TokenAddress ExternalAddress `json:"token_address"`
	Amount       *NormalizedAmount `json:"amount"`
}

func committedTransferKey(k TransferKey) []byte {
	return []byte(fmt.Sprintf("accountant_committed:%d:%s:%d", k.EmitterChain, k.EmitterAddress.String(), k.Sequence))
}

// IsCommitted reports whether a transfer under key k has already been
// applied to the ledger.
func IsCommitted(k TransferKey) bool {
	_, err := CurrentStore().Get(committedTransferKey(k))
	return err == nil
}

// GetCommittedTransfer returns the ledger record a prior CommitTransfer
// persisted under k, or ErrNotFound if k has never been committed (spec §6
// "GET /api/accountant/committed/...").
func GetCommittedTransfer(k TransferKey) (*Transfer, error) {
	raw, err := CurrentStore().Get(committedTransferKey(k))
	if err != nil {
		return nil, ErrNotFound
	}
	var t Transfer
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CommitTransfer applies a quorum-reached transfer to the ledger: it debits
// the source account (burning a wrapped balance, or growing custody if the
// source chain is the token's chain of origin) and credits the destination
// account (minting a wrapped balance, or shrinking custody if the
// destination chain is the token's chain of origin). It is idempotent per
// Transfer.Key: a second commit under an already-applied key returns
// ErrDuplicateTransfer without touching any balance.
func CommitTransfer(t *Transfer) error {
	if IsCommitted(t.Key) {
		return ErrDuplicateTransfer
	}

	sourceKey := AccountKey{ChainID: t.SourceChain, TokenChain: t.TokenChain, TokenAddress: t.TokenAddress}
	destKey := AccountKey{ChainID: t.DestChain, TokenChain: t.TokenChain, TokenAddress: t.TokenAddress}

	sourceExisted := accountExists(sourceKey)
	destExisted := accountExists(destKey)

	sourceBal, err := GetBalance(sourceKey)
	if err != nil {
		return err
	}
	destBal, err := GetBalance(destKey)
	if err != nil {
		return err
	}

	if t.SourceChain == t.TokenChain {
		sourceBal = AddAmount(sourceBal, t.Amount)
	} else {
		if !sourceExisted {
			return ErrMissingWrappedAccount
		}
		if sourceBal.Cmp(t.Amount) < 0 {
			return ErrInsufficientSourceBalance
		}
		sourceBal = SubAmount(sourceBal, t.Amount)
	}

	if t.DestChain == t.TokenChain {
		if !destExisted {
			return ErrMissingNativeAccount
		}
		if destBal.Cmp(t.Amount) < 0 {
			return ErrInsufficientDestBalance
		}
		destBal = SubAmount(destBal, t.Amount)
	} else {
		destBal = AddAmount(destBal, t.Amount)
	}

	if err := setBalance(sourceKey, sourceBal); err != nil {
		return err
	}
	if err := setBalance(destKey, destBal); err != nil {
		return err
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := CurrentStore().Set(committedTransferKey(t.Key), raw); err != nil {
		return err
	}
	BroadcastEvent("accountant:transfer_committed", map[string]any{
		"emitter_chain": t.Key.EmitterChain, "sequence": t.Key.Sequence,
		"source_chain": t.SourceChain, "dest_chain": t.DestChain,
	})
	return nil
}

// Modification is a governance-issued direct balance adjustment (spec
// §4.H "Modification log"), used to correct an account after an incident
// without needing a matching on-chain transfer.
type Modification struct {
	Sequence uint64     `json:"sequence"`
	Account  AccountKey `json:"account"`
	Add      bool       `json:"add"`
	Amount   *NormalizedAmount `json:"amount"`
	Reason   string     `json:"reason"`
}

func modificationKey(sequence uint64) []byte {
	return []byte(fmt.Sprintf("accountant_modification:%d", sequence))
}

// ApplyModification applies a governance balance modification, guarded by
// Modification.Sequence: applying the same sequence twice returns
// ErrDuplicateModification and leaves the balance untouched.
func ApplyModification(m *Modification) error {
	if _, err := CurrentStore().Get(modificationKey(m.Sequence)); err == nil {
		return ErrDuplicateModification
	}

	bal, err := GetBalance(m.Account)
	if err != nil {
		return err
	}
	if m.Add {
		bal = AddAmount(bal, m.Amount)
	} else {
		if bal.Cmp(m.Amount) < 0 {
			return ErrInsufficientBalance
		}
		bal = SubAmount(bal, m.Amount)
	}
	if err := setBalance(m.Account, bal); err != nil {
		return err
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := CurrentStore().Set(modificationKey(m.Sequence), raw); err != nil {
		return err
	}
	BroadcastEvent("accountant:modification_applied", map[string]any{"sequence": m.Sequence, "add": m.Add})
	return nil
}
