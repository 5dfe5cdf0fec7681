package core

// bridge_signature.go – VAA signature verification against a guardian set
// quorum (spec §4.A/§4.B). Grounded on the teacher's use of
// github.com/ethereum/go-ethereum/crypto for ECDSA recovery (the same
// package bridge_vaa.go uses for keccak256 digests);
// github.com/decred/dcrd/dcrec/secp256k1/v4 — already an
// indirect dependency pulled in transitively by go-ethereum in the
// teacher's go.mod — is promoted to a direct import here for the
// lower-level signature malleability check go-ethereum's recoverable-sig
// path does not itself expose.

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

// recoverGuardianAddress recovers the 20-byte address that produced sig over
// digest. sig is in wire order r(32) || s(32) || v(1), v in {0,1}. The "s"
// half is required to sit in the canonical lower range: guardians sign with
// canonical signatures, so an upper-range "s" indicates a malleated or
// forged signature rather than a legitimate alternate encoding.
func recoverGuardianAddress(digest Hash, sig [65]byte) (Address, error) {
	var s secp256k1.ModNScalar
	s.SetByteSlice(sig[32:64])
	if s.IsOverHalfOrder() {
		return Address{}, ErrGuardianSignatureError
	}

	pub, err := crypto.SigToPub(digest[:], sig[:])
	if err != nil {
		return Address{}, ErrGuardianSignatureError
	}
	var addr Address
	copy(addr[:], crypto.PubkeyToAddress(*pub).Bytes())
	return addr, nil
}

// VerifyVAA checks a parsed VAA's signatures against guardianSet: every
// signature must recover to the guardian address at its claimed index, the
// guardian indices must already be strictly ascending (ParseVAA enforces
// this), and the number of valid signatures must reach guardianSet's
// quorum. now is used to reject VAAs referencing an expired guardian set
// (spec §4.B's grace window).
func VerifyVAA(v *ParsedVAA, guardianSet *GuardianSet, now int64) error {
	if guardianSet.IsExpiredAt(now) {
		return ErrGuardianSetExpired
	}
	if len(v.Signatures) > len(guardianSet.Addresses) {
		return ErrTooManySignatures
	}
	quorum := guardianSet.Quorum()
	if len(v.Signatures) < quorum {
		return ErrNoQuorum
	}

	valid := 0
	for _, sig := range v.Signatures {
		if int(sig.GuardianIndex) >= len(guardianSet.Addresses) {
			return ErrGuardianSignatureError
		}
		want := guardianSet.Addresses[sig.GuardianIndex]
		got, err := recoverGuardianAddress(v.Digest, sig.Signature)
		if err != nil {
			return err
		}
		if got != want {
			return ErrGuardianSignatureError
		}
		valid++
	}
	if valid < quorum {
		return ErrNoQuorum
	}
	return nil
}
