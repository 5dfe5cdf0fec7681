package core

// common_structs.go – centralised struct definitions referenced across the
// cross-chain modules. This file declares the handful of primitive types
// (Address, Hash) shared by every component in this package, kept
// deliberately small: each bridge component owns its own record types in its
// own file rather than piling them in here.

import (
	"encoding/hex"
	"fmt"
)

// Address represents a 20-byte account identifier native to this chain.
type Address [20]byte

// String renders the address as a 0x-prefixed hex string.
func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte { return a[:] }

// Hash represents a 32-byte cryptographic hash.
type Hash [32]byte

// String renders the hash as a 0x-prefixed hex string.
func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// ParseAddress decodes a hex-encoded (optionally 0x-prefixed) 20-byte
// address.
func ParseAddress(s string) (Address, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 20 {
		return Address{}, fmt.Errorf("invalid address: %s", s)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}
