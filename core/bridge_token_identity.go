package core

// bridge_token_identity.go – the token identity map (spec §4.D/§4.E): which
// foreign (token_chain, token_address) pairs have been attested on this
// chain, and what wrapped contract (or native asset) backs them locally.
// Grounded on the teacher's ListChainContracts/GetChainContract registry
// pattern in cross_chain_contracts.go, generalized from a single
// chain-keyed table to the token bridge's two-directional lookup: foreign
// identity -> local handle, and local handle -> foreign identity.

import (
	"encoding/json"
	"fmt"
)

// AssetMeta describes a token as attested on the wire (spec §4.D
// ATTEST_META payload fields).
type AssetMeta struct {
	TokenChain   uint16          `json:"token_chain"`
	TokenAddress ExternalAddress `json:"token_address"`
	Decimals     uint8           `json:"decimals"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
}

// WrappedAsset is the persisted binding between a foreign asset and its
// local representation: either a freshly deployed wrapped contract (native
// on a foreign chain), or the local native asset itself (when this chain is
// the asset's chain of origin, token_chain equals this chain's id).
type WrappedAsset struct {
	Meta         AssetMeta `json:"meta"`
	LocalHandle  Address   `json:"local_handle"`
	IsNative     bool      `json:"is_native"`
	AttestedOnce bool      `json:"attested_once"`
}

func assetKey(tokenChain uint16, tokenAddress ExternalAddress) []byte {
	return []byte(fmt.Sprintf("wrapped_asset:%d:%s", tokenChain, tokenAddress.String()))
}

func localHandleKey(handle Address) []byte {
	return []byte("wrapped_by_handle:" + handle.String())
}

// AttestAsset records a foreign asset's metadata, deploying a fresh wrapped
// contract for it the first time it is seen, and updating its recorded
// metadata (decimals/symbol/name) on subsequent attestations without
// redeploying (spec §4.D "ATTEST_META ... on a subsequent attestation,
// update metadata only").
func AttestAsset(meta AssetMeta, thisChain uint16) (*WrappedAsset, error) {
	existing, err := GetWrappedAsset(meta.TokenChain, meta.TokenAddress)
	if err == nil {
		existing.Meta.Decimals = meta.Decimals
		existing.Meta.Symbol = meta.Symbol
		existing.Meta.Name = meta.Name
		existing.AttestedOnce = true
		if err := persistWrappedAsset(existing); err != nil {
			return nil, err
		}
		BroadcastEvent("bridge:attest_meta_updated", map[string]any{"token_chain": meta.TokenChain, "token_address": meta.TokenAddress.String()})
		return existing, nil
	}

	asset := &WrappedAsset{Meta: meta, AttestedOnce: true}
	if meta.TokenChain == thisChain {
		local, lerr := meta.TokenAddress.ToLocal()
		if lerr != nil {
			return nil, lerr
		}
		asset.LocalHandle = local
		asset.IsNative = true
	} else {
		wrapped := NewBaseWrappedToken(meta.Name, meta.Symbol, meta.Decimals)
		handle := ModuleAddress(fmt.Sprintf("wrapped:%d:%s", meta.TokenChain, meta.TokenAddress.String()))
		if err := registerWrappedToken(handle, wrapped); err != nil {
			return nil, err
		}
		asset.LocalHandle = handle
		asset.IsNative = false
	}

	if err := persistWrappedAsset(asset); err != nil {
		return nil, err
	}
	if err := CurrentStore().Set(localHandleKey(asset.LocalHandle), assetKey(meta.TokenChain, meta.TokenAddress)); err != nil {
		return nil, err
	}
	BroadcastEvent("bridge:attest_meta", map[string]any{"token_chain": meta.TokenChain, "token_address": meta.TokenAddress.String(), "local_handle": asset.LocalHandle.String()})
	return asset, nil
}

func persistWrappedAsset(a *WrappedAsset) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return CurrentStore().Set(assetKey(a.Meta.TokenChain, a.Meta.TokenAddress), raw)
}

// GetWrappedAsset looks up the local binding for a foreign (token_chain,
// token_address) pair. Returns ErrAssetNotAttested if it has never been
// attested on this chain.
func GetWrappedAsset(tokenChain uint16, tokenAddress ExternalAddress) (*WrappedAsset, error) {
	raw, err := CurrentStore().Get(assetKey(tokenChain, tokenAddress))
	if err != nil {
		return nil, ErrAssetNotAttested
	}
	var a WrappedAsset
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAssetByLocalHandle is the reverse lookup: given a local contract
// handle, return the foreign identity it was attested under.
func GetAssetByLocalHandle(handle Address) (*WrappedAsset, error) {
	key, err := CurrentStore().Get(localHandleKey(handle))
	if err != nil {
		return nil, ErrAssetNotAttested
	}
	raw, err := CurrentStore().Get(key)
	if err != nil {
		return nil, ErrAssetNotAttested
	}
	var a WrappedAsset
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

var wrappedTokenRegistry = struct {
	tokens map[Address]WrappedToken
}{tokens: make(map[Address]WrappedToken)}

// registerWrappedToken binds a deployed WrappedToken implementation to its
// local handle so later Mint/Burn calls can find it.
func registerWrappedToken(handle Address, token WrappedToken) error {
	wrappedTokenRegistry.tokens[handle] = token
	name, symbol, decimals, _ := token.TokenInfo()
	return persistWrappedTokenRecord(handle, wrappedTokenRecord{Name: name, Symbol: symbol, Decimals: decimals})
}

// LookupWrappedToken returns the WrappedToken deployed at handle, if any.
func LookupWrappedToken(handle Address) (WrappedToken, bool) {
	t, ok := wrappedTokenRegistry.tokens[handle]
	return t, ok
}
