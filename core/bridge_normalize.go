package core

// bridge_normalize.go – u256 wire amounts and 8-decimal normalization (spec
// §3, §9 "Numeric semantics"). The teacher's VM package reaches for
// github.com/holiman/uint256-style 256-bit masking (mask256/two256 in
// utility_functions.go) for exactly this kind of fixed-width arithmetic; this
// file uses the real holiman/uint256 package directly (it was already an
// indirect dependency of the teacher's go-ethereum import) instead of
// reimplementing 256-bit overflow checks on top of math/big, since the
// pack already demonstrates the idiom of reaching for that library.

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// NormalizedAmount is a 256-bit unsigned amount, normalized to 8 decimals on
// the wire per spec §3. AddAmount panics on overflow and TrySubAmount
// reports underflow as an error; SubAmount wraps modulo 2^256.
type NormalizedAmount struct {
	v uint256.Int
}

// ZeroAmount returns the additive identity.
func ZeroAmount() *NormalizedAmount { return &NormalizedAmount{} }

// AmountFromUint64 builds a NormalizedAmount from a uint64 value.
func AmountFromUint64(v uint64) *NormalizedAmount {
	a := &NormalizedAmount{}
	a.v.SetUint64(v)
	return a
}

// AmountFromBytes32 decodes a 32-byte big-endian wire amount.
func AmountFromBytes32(b []byte) (*NormalizedAmount, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("amount: expected 32 bytes, got %d", len(b))
	}
	a := &NormalizedAmount{}
	a.v.SetBytes32(b)
	return a, nil
}

// Bytes32 encodes the amount as a 32-byte big-endian wire value.
func (a *NormalizedAmount) Bytes32() [32]byte {
	return a.v.Bytes32()
}

// HighBitsSet reports whether any of the high 128 bits are set — the
// overflow guard spec §4.F/§8 requires on every incoming transfer's amount
// and fee.
func (a *NormalizedAmount) HighBitsSet() bool {
	b := a.v.Bytes32()
	for i := 0; i < 16; i++ {
		if b[i] != 0 {
			return true
		}
	}
	return false
}

// Cmp compares two amounts (-1, 0, 1).
func (a *NormalizedAmount) Cmp(b *NormalizedAmount) int { return a.v.Cmp(&b.v) }

// IsZero reports whether the amount is zero.
func (a *NormalizedAmount) IsZero() bool { return a.v.IsZero() }

// Uint64 returns the low 64 bits (callers must ensure the value fits).
func (a *NormalizedAmount) Uint64() uint64 { return a.v.Uint64() }

// AddAmount returns a+b, panicking on 256-bit overflow (callers are expected
// to have already checked against realistic on-chain supply bounds; an
// overflow here indicates a corrupted wire value, not a reachable user
// input).
func AddAmount(a, b *NormalizedAmount) *NormalizedAmount {
	out := &NormalizedAmount{}
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		panic("bridge: amount addition overflowed 256 bits")
	}
	return out
}

// SubAmount returns a-b without an underflow check: if b > a the result
// wraps modulo 2^256. Use TrySubAmount where b may exceed a.
func SubAmount(a, b *NormalizedAmount) *NormalizedAmount {
	out := &NormalizedAmount{}
	out.v.Sub(&a.v, &b.v)
	return out
}

// TrySubAmount returns a-b, or an error if b > a (checked subtraction).
func TrySubAmount(a, b *NormalizedAmount) (*NormalizedAmount, error) {
	if a.Cmp(b) < 0 {
		return nil, fmt.Errorf("amount: underflow")
	}
	return SubAmount(a, b), nil
}

// decimalMultiplier returns 10^(decimals-8) as a NormalizedAmount, or 1 if
// decimals <= 8.
func decimalMultiplier(decimals uint8) *NormalizedAmount {
	if decimals <= 8 {
		return AmountFromUint64(1)
	}
	mult := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint8(0); i < decimals-8; i++ {
		mult.Mul(mult, ten)
	}
	return &NormalizedAmount{v: *mult}
}

// Denormalize converts a wire (8-decimal) amount back to the chain's native
// decimals by multiplying by the host factor, restoring the precision
// dropped on the way out (spec §3, §9).
func Denormalize(amount *NormalizedAmount, decimals uint8) *NormalizedAmount {
	mult := decimalMultiplier(decimals)
	out := &NormalizedAmount{}
	out.v.Mul(&amount.v, &mult.v)
	return out
}

// Normalize converts a native-decimal amount to the wire's 8-decimal form,
// chopping dust below the multiplier (spec §3, §8 "Dust ... is truncated on
// egress and cannot reappear").
func Normalize(amount *NormalizedAmount, decimals uint8) *NormalizedAmount {
	mult := decimalMultiplier(decimals)
	out := &NormalizedAmount{}
	out.v.Div(&amount.v, &mult.v)
	return out
}

// ExternalAddress is the 32-byte cross-chain form of an address or token
// identity (spec §3 ParsedVAA.emitter_address, TransferInfo.token_address).
// Kept distinct from the 20-byte local Address: a Cosmos/Solana emitter, or
// a sentinel-prefixed native-denom tag, does not fit in 20 bytes.
type ExternalAddress [32]byte

// String renders the address as a 0x-prefixed hex string.
func (e ExternalAddress) String() string { return "0x" + hex.EncodeToString(e[:]) }

// nativeDenomSentinel is the high byte set on a 32-byte address to mark it
// as a native bank-denom tag rather than a contract address (spec §4.E).
const nativeDenomSentinel = 0x01

// IsNativeDenomSentinel reports whether the high byte carries the
// native-bank-denom sentinel.
func (e ExternalAddress) IsNativeDenomSentinel() bool { return e[0] == nativeDenomSentinel }

// ExternalAddressFromLocal zero-pads a local 20-byte contract handle into
// its 32-byte external form.
func ExternalAddressFromLocal(a Address) ExternalAddress {
	var out ExternalAddress
	copy(out[12:], a[:])
	return out
}

// ToLocal extracts the 20-byte local handle from a non-sentinel external
// address (the high 12 bytes must be zero).
func (e ExternalAddress) ToLocal() (Address, error) {
	if e.IsNativeDenomSentinel() {
		return Address{}, ErrIllegalSentinelAddress
	}
	for i := 0; i < 12; i++ {
		if e[i] != 0 {
			return Address{}, fmt.Errorf("token identity: address is not a zero-padded contract handle")
		}
	}
	var a Address
	copy(a[:], e[12:])
	return a, nil
}

// DenomSentinelAddress derives the deterministic 32-byte sentinel tag for a
// native bank denom string (spec §4.E): a keccak digest of the denom with
// the high byte forced to the sentinel value.
func DenomSentinelAddress(denom string) ExternalAddress {
	h := Keccak256([]byte("denom:" + denom))
	var out ExternalAddress
	copy(out[:], h[:])
	out[0] = nativeDenomSentinel
	return out
}
