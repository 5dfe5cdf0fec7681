package core

// cross_chain_contracts.go – the "bridge_contracts" table from spec §6: a
// one-time-per-chain mapping from a foreign chain id to the 32-byte address
// of the sibling token-bridge contract on that chain, populated by the
// RegisterChain governance action (spec §4.F). Grounded on the teacher's
// RegisterXContract/GetXContract/ListXContracts cross-chain contract
// registry, generalized from an arbitrary (local address, remote chain
// string, remote address string) triple into the spec's
// (chain id -> 32-byte address) shape and its one-time-registration rule.

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// RegisteredContract is the persisted form of a foreign bridge contract
// registration.
type RegisteredContract struct {
	ChainID uint16          `json:"chain_id"`
	Address ExternalAddress `json:"address"`
}

func bridgeContractKey(chain uint16) []byte {
	return []byte(fmt.Sprintf("bridge_contracts:%d", chain))
}

// RegisterChainContract executes the RegisterChain governance action: it
// binds chain to address. A second registration of the same chain is
// rejected per spec §4.F ("One-time per chain").
func RegisterChainContract(chain uint16, address ExternalAddress) error {
	logger := zap.L().Sugar()
	if _, err := GetChainContract(chain); err == nil {
		return ErrAssetAlreadyRegistered
	}
	rec := RegisteredContract{ChainID: chain, Address: address}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := CurrentStore().Set(bridgeContractKey(chain), raw); err != nil {
		logger.Errorf("store bridge contract for chain %d: %v", chain, err)
		return err
	}
	BroadcastEvent("governance:register_chain", map[string]any{"chain": chain, "address": address.String()})
	logger.Infof("registered bridge contract for chain %d -> %s", chain, address.String())
	return nil
}

// GetChainContract retrieves the registered sibling bridge address for chain.
func GetChainContract(chain uint16) (ExternalAddress, error) {
	raw, err := CurrentStore().Get(bridgeContractKey(chain))
	if err != nil {
		return ExternalAddress{}, ErrNotFound
	}
	var rec RegisteredContract
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ExternalAddress{}, err
	}
	return rec.Address, nil
}

// ListChainContracts returns every registered (chain, address) pair.
func ListChainContracts() ([]RegisteredContract, error) {
	it := CurrentStore().Iterator([]byte("bridge_contracts:"), nil)
	defer it.Close()
	var out []RegisteredContract
	for it.Next() {
		var rec RegisteredContract
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, it.Error()
}
