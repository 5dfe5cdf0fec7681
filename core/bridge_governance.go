package core

// bridge_governance.go – the governance VAA processor (spec §4.F/§4.G): a
// single hardcoded emitter, a per-module dispatch table, and one-time
// execution enforced through the replay/claim store. Grounded on the
// teacher's RegisterChainContract check-then-persist idiom, wired here to
// decode a GovernancePacket and route it to the TokenBridge's own
// RegisterChain/UpgradeContract handlers.

import (
	"go.uber.org/zap"
)

// ExecuteGovernanceVAA verifies vaa carries a guardian-set quorum of valid
// signatures, comes from the hardcoded governance emitter, decodes its
// packet, and dispatches it by module and action. The signature check is
// performed here rather than left to callers so that no caller path -
// CLI, HTTP, or otherwise - can execute a governance action without it, the
// same way SubmitVAA verifies before committing a transfer. Like
// CompleteTransfer, execution is idempotent per (emitter_chain,
// emitter_address, sequence) via the claim store. now and expirationWindow
// are forwarded to SetGuardianSet for a Core guardian-set-upgrade packet;
// they are ignored for every other module.
func ExecuteGovernanceVAA(vaa *ParsedVAA, now int64, expirationWindow int64) error {
	logger := zap.L().Sugar()
	cfg := CurrentConfig()

	gs, err := GetGuardianSet(vaa.GuardianSetIndex)
	if err != nil {
		return err
	}
	if err := VerifyVAA(vaa, gs, now); err != nil {
		return err
	}

	if vaa.EmitterChain != cfg.GovernanceChain || vaa.EmitterAddress != cfg.GovernanceEmitter {
		return ErrNotGovernanceEmitter
	}
	if HasBeenExecuted(vaa.EmitterChain, vaa.EmitterAddress, vaa.Sequence) {
		return ErrVaaAlreadyExecuted
	}

	packet, err := DecodeGovernancePacket(vaa.Payload)
	if err != nil {
		return err
	}
	if packet.TargetChain != 0 && packet.TargetChain != cfg.ThisChain {
		return ErrWrongTargetChain
	}

	switch packet.Module {
	case GovernanceModuleTokenBridge:
		if err := dispatchTokenBridgeGovernance(packet, logger); err != nil {
			return err
		}
	case GovernanceModuleCore:
		if err := dispatchCoreGovernance(packet, now, expirationWindow, logger); err != nil {
			return err
		}
	default:
		return ErrUnknownModule
	}

	if err := ClaimVAA(vaa.EmitterChain, vaa.EmitterAddress, vaa.Sequence, vaa.Digest); err != nil {
		return err
	}
	logger.Infof("executed governance action=%d module=%s", packet.Action, packet.Module)
	return nil
}

func dispatchTokenBridgeGovernance(packet *GovernancePacket, logger *zap.SugaredLogger) error {
	switch packet.Action {
	case GovActionRegisterChain:
		data, err := DecodeRegisterChainData(packet.Data)
		if err != nil {
			return err
		}
		return RegisterChainContract(data.ChainID, data.Address)
	case GovActionUpgradeContract:
		data, err := DecodeUpgradeContractData(packet.Data)
		if err != nil {
			return err
		}
		logger.Infof("governance upgrade_contract: new contract %s", data.NewContract.String())
		BroadcastEvent("governance:upgrade_contract", map[string]any{"new_contract": data.NewContract.String()})
		return nil
	default:
		return ErrUnsupportedAction
	}
}

func dispatchCoreGovernance(packet *GovernancePacket, now int64, expirationWindow int64, logger *zap.SugaredLogger) error {
	switch packet.Action {
	case CoreActionGuardianSetUpgrade:
		data, err := DecodeGuardianSetUpgradeData(packet.Data)
		if err != nil {
			return err
		}
		return SetGuardianSet(&GuardianSet{Index: data.NewIndex, Addresses: data.Addresses}, now, expirationWindow)
	default:
		return ErrUnsupportedAction
	}
}
