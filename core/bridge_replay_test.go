package core

import "testing"

func TestClaimVAA(t *testing.T) {
	resetStoreForTest()
	var addr ExternalAddress
	addr[31] = 9
	var digest Hash
	digest[0] = 0xaa

	if HasBeenExecuted(2, addr, 1) {
		t.Fatalf("expected not yet executed")
	}
	if err := ClaimVAA(2, addr, 1, digest); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !HasBeenExecuted(2, addr, 1) {
		t.Fatalf("expected executed after claim")
	}

	if err := ClaimVAA(2, addr, 1, digest); err != ErrDuplicateMessage {
		t.Fatalf("expected ErrDuplicateMessage on identical resubmission, got %v", err)
	}

	var otherDigest Hash
	otherDigest[0] = 0xbb
	if err := ClaimVAA(2, addr, 1, otherDigest); err != ErrDigestMismatch {
		t.Fatalf("expected ErrDigestMismatch on conflicting resubmission, got %v", err)
	}
}
