package core

import "testing"

func TestCommitTransferLockThenUnlock(t *testing.T) {
	resetStoreForTest()
	var tokenAddr ExternalAddress
	tokenAddr[31] = 1

	// Lock: source chain (2) is the token's native chain, custody grows.
	lock := &Transfer{
		Key:          TransferKey{EmitterChain: 2, EmitterAddress: ExternalAddress{31: 9}, Sequence: 1},
		SourceChain:  2,
		DestChain:    5,
		TokenChain:   2,
		TokenAddress: tokenAddr,
		Amount:       AmountFromUint64(1000),
	}
	if err := CommitTransfer(lock); err != nil {
		t.Fatalf("commit lock: %v", err)
	}
	custody, err := GetBalance(AccountKey{ChainID: 2, TokenChain: 2, TokenAddress: tokenAddr})
	if err != nil {
		t.Fatalf("get custody: %v", err)
	}
	if custody.Uint64() != 1000 {
		t.Fatalf("expected custody 1000, got %d", custody.Uint64())
	}
	wrapped, err := GetBalance(AccountKey{ChainID: 5, TokenChain: 2, TokenAddress: tokenAddr})
	if err != nil {
		t.Fatalf("get wrapped: %v", err)
	}
	if wrapped.Uint64() != 1000 {
		t.Fatalf("expected wrapped supply 1000, got %d", wrapped.Uint64())
	}

	// Unlock: source chain (5, wrapped) burns, dest chain (2, native) shrinks custody.
	unlock := &Transfer{
		Key:          TransferKey{EmitterChain: 5, EmitterAddress: ExternalAddress{31: 9}, Sequence: 2},
		SourceChain:  5,
		DestChain:    2,
		TokenChain:   2,
		TokenAddress: tokenAddr,
		Amount:       AmountFromUint64(400),
	}
	if err := CommitTransfer(unlock); err != nil {
		t.Fatalf("commit unlock: %v", err)
	}
	custody, _ = GetBalance(AccountKey{ChainID: 2, TokenChain: 2, TokenAddress: tokenAddr})
	if custody.Uint64() != 600 {
		t.Fatalf("expected custody 600 after unlock, got %d", custody.Uint64())
	}
	wrapped, _ = GetBalance(AccountKey{ChainID: 5, TokenChain: 2, TokenAddress: tokenAddr})
	if wrapped.Uint64() != 600 {
		t.Fatalf("expected wrapped 600 after burn, got %d", wrapped.Uint64())
	}
}

func TestCommitTransferIsIdempotent(t *testing.T) {
	resetStoreForTest()
	tr := &Transfer{
		Key:          TransferKey{EmitterChain: 2, EmitterAddress: ExternalAddress{31: 1}, Sequence: 1},
		SourceChain:  2,
		DestChain:    5,
		TokenChain:   2,
		TokenAddress: ExternalAddress{31: 1},
		Amount:       AmountFromUint64(10),
	}
	if err := CommitTransfer(tr); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := CommitTransfer(tr); err != ErrDuplicateTransfer {
		t.Fatalf("expected ErrDuplicateTransfer, got %v", err)
	}
}

func TestCommitTransferRejectsUnbackedUnlock(t *testing.T) {
	resetStoreForTest()
	tr := &Transfer{
		Key:          TransferKey{EmitterChain: 5, EmitterAddress: ExternalAddress{31: 2}, Sequence: 1},
		SourceChain:  5,
		DestChain:    2,
		TokenChain:   2,
		TokenAddress: ExternalAddress{31: 2},
		Amount:       AmountFromUint64(50),
	}
	if err := CommitTransfer(tr); err != ErrMissingWrappedAccount {
		t.Fatalf("expected ErrMissingWrappedAccount burning an untouched wrapped account, got %v", err)
	}
}

func TestCommitTransferRejectsInsufficientSourceBalance(t *testing.T) {
	resetStoreForTest()
	tokenAddr := ExternalAddress{31: 4}

	// Lock first so the wrapped account at (5, 2, tokenAddr) exists with a
	// small balance.
	lock := &Transfer{
		Key:          TransferKey{EmitterChain: 2, EmitterAddress: ExternalAddress{31: 9}, Sequence: 1},
		SourceChain:  2,
		DestChain:    5,
		TokenChain:   2,
		TokenAddress: tokenAddr,
		Amount:       AmountFromUint64(10),
	}
	if err := CommitTransfer(lock); err != nil {
		t.Fatalf("commit lock: %v", err)
	}

	// Attempt to burn more than the existing wrapped balance covers.
	overdraw := &Transfer{
		Key:          TransferKey{EmitterChain: 5, EmitterAddress: ExternalAddress{31: 9}, Sequence: 2},
		SourceChain:  5,
		DestChain:    2,
		TokenChain:   2,
		TokenAddress: tokenAddr,
		Amount:       AmountFromUint64(500),
	}
	if err := CommitTransfer(overdraw); err != ErrInsufficientSourceBalance {
		t.Fatalf("expected ErrInsufficientSourceBalance for an existing-but-underfunded account, got %v", err)
	}
}

func TestCommitTransferRejectsInsufficientDestBalance(t *testing.T) {
	resetStoreForTest()
	tokenAddr := ExternalAddress{31: 5}
	custodyKey := AccountKey{ChainID: 2, TokenChain: 2, TokenAddress: tokenAddr}
	wrappedKey := AccountKey{ChainID: 5, TokenChain: 2, TokenAddress: tokenAddr}

	// Seed the two sides of the ledger independently (as a governance
	// Modification would after an incident) so custody sits below the
	// outstanding wrapped supply it is meant to back.
	if err := ApplyModification(&Modification{Sequence: 1, Account: custodyKey, Add: true, Amount: AmountFromUint64(600)}); err != nil {
		t.Fatalf("seed custody: %v", err)
	}
	if err := ApplyModification(&Modification{Sequence: 2, Account: wrappedKey, Add: true, Amount: AmountFromUint64(2000)}); err != nil {
		t.Fatalf("seed wrapped: %v", err)
	}

	// Unlocking back to the native chain for more than is in custody should
	// report an existing-but-underfunded account, not a missing one.
	overdraw := &Transfer{
		Key:          TransferKey{EmitterChain: 5, EmitterAddress: ExternalAddress{31: 9}, Sequence: 1},
		SourceChain:  5,
		DestChain:    2,
		TokenChain:   2,
		TokenAddress: tokenAddr,
		Amount:       AmountFromUint64(1000),
	}
	if err := CommitTransfer(overdraw); err != ErrInsufficientDestBalance {
		t.Fatalf("expected ErrInsufficientDestBalance for an existing-but-underfunded custody account, got %v", err)
	}
}

func TestApplyModificationIdempotent(t *testing.T) {
	resetStoreForTest()
	key := AccountKey{ChainID: 2, TokenChain: 2, TokenAddress: ExternalAddress{31: 3}}
	m := &Modification{Sequence: 1, Account: key, Add: true, Amount: AmountFromUint64(100), Reason: "incident correction"}
	if err := ApplyModification(m); err != nil {
		t.Fatalf("apply: %v", err)
	}
	bal, _ := GetBalance(key)
	if bal.Uint64() != 100 {
		t.Fatalf("expected 100, got %d", bal.Uint64())
	}
	if err := ApplyModification(m); err != ErrDuplicateModification {
		t.Fatalf("expected ErrDuplicateModification, got %v", err)
	}

	debit := &Modification{Sequence: 2, Account: key, Add: false, Amount: AmountFromUint64(1000)}
	if err := ApplyModification(debit); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
