package core

import (
	"bytes"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

// signDigest signs digest with priv and returns a wire-order r||s||v
// signature, the same format crypto.Sign already produces.
func signDigest(t *testing.T, priv *ecdsaPrivKey, digest Hash) [65]byte {
	t.Helper()
	sig, err := crypto.Sign(digest[:], priv.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	var out [65]byte
	copy(out[:], sig)
	return out
}

// ecdsaPrivKey wraps a generated guardian keypair for tests.
type ecdsaPrivKey struct {
	key  *ecdsa.PrivateKey
	addr Address
}

func newGuardianKey(t *testing.T) *ecdsaPrivKey {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var addr Address
	copy(addr[:], crypto.PubkeyToAddress(priv.PublicKey).Bytes())
	return &ecdsaPrivKey{key: priv, addr: addr}
}

func buildVAA(t *testing.T, guardians []*ecdsaPrivKey, signerIdx []int, body []byte, guardianSetIndex uint32) []byte {
	t.Helper()
	digest := doubleKeccak(body)

	buf := new(bytes.Buffer)
	buf.WriteByte(vaaVersion)
	buf.Write(encodeUint32(guardianSetIndex))
	buf.WriteByte(byte(len(signerIdx)))
	for _, idx := range signerIdx {
		sig := signDigest(t, guardians[idx], digest)
		buf.WriteByte(byte(idx))
		buf.Write(sig[:])
	}
	buf.Write(body)
	return buf.Bytes()
}

func TestParseVAARoundTrip(t *testing.T) {
	g := newGuardianKey(t)
	body := EncodeBody(1000, 42, 2, ExternalAddressFromLocal(g.addr), 7, 1, []byte("payload"))
	raw := buildVAA(t, []*ecdsaPrivKey{g}, []int{0}, body, 0)

	vaa, err := ParseVAA(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if vaa.Timestamp != 1000 || vaa.Nonce != 42 || vaa.EmitterChain != 2 || vaa.Sequence != 7 {
		t.Fatalf("unexpected decoded fields: %+v", vaa)
	}
	if string(vaa.Payload) != "payload" {
		t.Fatalf("unexpected payload %q", vaa.Payload)
	}

	reenc, err := EncodeVAA(vaa)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(reenc, raw) {
		t.Fatalf("re-encoded VAA does not match original wire bytes")
	}
}

func TestParseVAARejectsBadVersion(t *testing.T) {
	raw := []byte{2, 0, 0, 0, 0, 0}
	if _, err := ParseVAA(raw); err != ErrBadVersion {
		t.Fatalf("expected ErrBadVersion, got %v", err)
	}
}

func TestParseVAARejectsOutOfOrderSignatures(t *testing.T) {
	g1, g2 := newGuardianKey(t), newGuardianKey(t)
	body := EncodeBody(1, 1, 1, ExternalAddressFromLocal(g1.addr), 1, 1, nil)
	digest := doubleKeccak(body)

	buf := new(bytes.Buffer)
	buf.WriteByte(vaaVersion)
	buf.Write(encodeUint32(0))
	buf.WriteByte(2)
	sig1 := signDigest(t, g1, digest)
	sig2 := signDigest(t, g2, digest)
	buf.WriteByte(1)
	buf.Write(sig1[:])
	buf.WriteByte(0) // out of order: must be strictly ascending
	buf.Write(sig2[:])
	buf.Write(body)

	if _, err := ParseVAA(buf.Bytes()); err != ErrWrongGuardianIndexOrder {
		t.Fatalf("expected ErrWrongGuardianIndexOrder, got %v", err)
	}
}

func TestParseVAATruncated(t *testing.T) {
	if _, err := ParseVAA([]byte{vaaVersion, 0, 0, 0, 0, 0}); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func threeGuardianSet(t *testing.T) ([]*ecdsaPrivKey, *GuardianSet) {
	t.Helper()
	gs := make([]*ecdsaPrivKey, 3)
	addrs := make([]Address, 3)
	for i := range gs {
		gs[i] = newGuardianKey(t)
		addrs[i] = gs[i].addr
	}
	return gs, &GuardianSet{Index: 0, Addresses: addrs}
}

func TestVerifyVAAQuorum(t *testing.T) {
	guardians, set := threeGuardianSet(t)
	body := EncodeBody(1, 1, 1, ExternalAddressFromLocal(guardians[0].addr), 1, 1, []byte("x"))
	raw := buildVAA(t, guardians, []int{0, 1}, body, 0) // 2-of-3 is short of quorum floor(2*3/3)+1=3
	vaa, err := ParseVAA(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if set.Quorum() != 3 {
		t.Fatalf("expected quorum 3 for 3 guardians, got %d", set.Quorum())
	}
	if err := VerifyVAA(vaa, set, 0); err != ErrNoQuorum {
		t.Fatalf("expected ErrNoQuorum with 2-of-3, got %v", err)
	}

	raw = buildVAA(t, guardians, []int{0, 1, 2}, body, 0)
	vaa, err = ParseVAA(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := VerifyVAA(vaa, set, 0); err != nil {
		t.Fatalf("expected quorum to pass with 3-of-3, got %v", err)
	}
}

func TestVerifyVAARejectsExpiredSet(t *testing.T) {
	guardians, set := threeGuardianSet(t)
	set.ExpirationTime = 100
	body := EncodeBody(1, 1, 1, ExternalAddressFromLocal(guardians[0].addr), 1, 1, nil)
	raw := buildVAA(t, guardians, []int{0, 1, 2}, body, 0)
	vaa, err := ParseVAA(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := VerifyVAA(vaa, set, 200); err != ErrGuardianSetExpired {
		t.Fatalf("expected ErrGuardianSetExpired, got %v", err)
	}
}

func TestVerifyVAARejectsWrongSigner(t *testing.T) {
	guardians, set := threeGuardianSet(t)
	impostor := newGuardianKey(t)
	body := EncodeBody(1, 1, 1, ExternalAddressFromLocal(guardians[0].addr), 1, 1, nil)
	digest := doubleKeccak(body)

	buf := new(bytes.Buffer)
	buf.WriteByte(vaaVersion)
	buf.Write(encodeUint32(0))
	buf.WriteByte(3)
	for i, idx := range []int{0, 1, 2} {
		var sig [65]byte
		if idx == 1 {
			sig = signDigest(t, impostor, digest) // signs at guardian-1's slot but isn't guardian 1
		} else {
			sig = signDigest(t, guardians[idx], digest)
		}
		buf.WriteByte(byte(idx))
		buf.Write(sig[:])
		_ = i
	}
	buf.Write(body)

	vaa, err := ParseVAA(buf.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := VerifyVAA(vaa, set, 0); err != ErrGuardianSignatureError {
		t.Fatalf("expected ErrGuardianSignatureError, got %v", err)
	}
}
