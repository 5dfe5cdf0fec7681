package core

import (
	"bytes"
	"testing"
)

func govVAA(t *testing.T, guardians []*ecdsaPrivKey, emitter ExternalAddress, seq uint64, packet *GovernancePacket) *ParsedVAA {
	t.Helper()
	body := EncodeBody(1, 1, 1, emitter, seq, 1, EncodeGovernancePacket(packet))
	raw := buildVAA(t, guardians, []int{0}, body, 0)
	vaa, err := ParseVAA(raw)
	if err != nil {
		t.Fatalf("parse governance vaa: %v", err)
	}
	return vaa
}

// govVAAUnsigned builds a governance VAA envelope carrying zero guardian
// signatures, the shape an attacker would submit hoping ExecuteGovernanceVAA
// only checks the emitter fields.
func govVAAUnsigned(t *testing.T, emitter ExternalAddress, seq uint64, packet *GovernancePacket) *ParsedVAA {
	t.Helper()
	body := EncodeBody(1, 1, 1, emitter, seq, 1, EncodeGovernancePacket(packet))

	buf := new(bytes.Buffer)
	buf.WriteByte(vaaVersion)
	buf.Write(encodeUint32(0))
	buf.WriteByte(0) // zero signatures
	buf.Write(body)

	vaa, err := ParseVAA(buf.Bytes())
	if err != nil {
		t.Fatalf("parse unsigned governance vaa: %v", err)
	}
	return vaa
}

func TestExecuteGovernanceRegisterChain(t *testing.T) {
	resetStoreForTest()
	Configure(BridgeConfig{ThisChain: 5, GovernanceChain: 1, GovernanceEmitter: defaultGovernanceEmitter(), ExpirationWindow: 86400})
	guardians := installTestGuardianSet(t, 1)

	data := EncodeRegisterChainData(&RegisterChainGovernanceData{ChainID: 2, Address: ExternalAddress{31: 0xaa}})
	packet := &GovernancePacket{Module: GovernanceModuleTokenBridge, Action: GovActionRegisterChain, TargetChain: 0, Data: data}
	vaa := govVAA(t, guardians, defaultGovernanceEmitter(), 1, packet)

	if err := ExecuteGovernanceVAA(vaa, 0, 86400); err != nil {
		t.Fatalf("execute: %v", err)
	}
	registered, err := GetChainContract(2)
	if err != nil {
		t.Fatalf("get chain contract: %v", err)
	}
	if registered != (ExternalAddress{31: 0xaa}) {
		t.Fatalf("unexpected registered contract: %v", registered)
	}

	if err := ExecuteGovernanceVAA(vaa, 0, 86400); err != ErrVaaAlreadyExecuted {
		t.Fatalf("expected ErrVaaAlreadyExecuted on replay, got %v", err)
	}
}

func TestExecuteGovernanceRejectsNonGovernanceEmitter(t *testing.T) {
	resetStoreForTest()
	Configure(BridgeConfig{ThisChain: 5, GovernanceChain: 1, GovernanceEmitter: defaultGovernanceEmitter(), ExpirationWindow: 86400})
	guardians := installTestGuardianSet(t, 1)

	data := EncodeRegisterChainData(&RegisterChainGovernanceData{ChainID: 2, Address: ExternalAddress{31: 1}})
	packet := &GovernancePacket{Module: GovernanceModuleTokenBridge, Action: GovActionRegisterChain, Data: data}
	impostorEmitter := ExternalAddress{31: 0xff}
	vaa := govVAA(t, guardians, impostorEmitter, 1, packet)

	if err := ExecuteGovernanceVAA(vaa, 0, 86400); err != ErrNotGovernanceEmitter {
		t.Fatalf("expected ErrNotGovernanceEmitter, got %v", err)
	}
}

func TestExecuteGovernanceGuardianSetUpgrade(t *testing.T) {
	resetStoreForTest()
	Configure(BridgeConfig{ThisChain: 5, GovernanceChain: 1, GovernanceEmitter: defaultGovernanceEmitter(), ExpirationWindow: 86400})
	guardians := installTestGuardianSet(t, 1)

	newGuardians := []Address{{1}, {2}, {3}}
	data := EncodeGuardianSetUpgradeData(&GuardianSetUpgradeData{NewIndex: 1, Addresses: newGuardians})
	packet := &GovernancePacket{Module: GovernanceModuleCore, Action: CoreActionGuardianSetUpgrade, Data: data}
	vaa := govVAA(t, guardians, defaultGovernanceEmitter(), 1, packet)

	if err := ExecuteGovernanceVAA(vaa, 1000, 500); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cur, err := CurrentGuardianSet()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.Index != 1 || len(cur.Addresses) != 3 {
		t.Fatalf("unexpected guardian set after upgrade: %+v", cur)
	}
	prev, err := GetGuardianSet(0)
	if err != nil {
		t.Fatalf("get previous: %v", err)
	}
	if prev.ExpirationTime != 1500 {
		t.Fatalf("expected previous set to expire at 1500, got %d", prev.ExpirationTime)
	}
}

func TestExecuteGovernanceRejectsUnsignedVAA(t *testing.T) {
	resetStoreForTest()
	Configure(BridgeConfig{ThisChain: 5, GovernanceChain: 1, GovernanceEmitter: defaultGovernanceEmitter(), ExpirationWindow: 86400})
	installTestGuardianSet(t, 1)

	data := EncodeRegisterChainData(&RegisterChainGovernanceData{ChainID: 2, Address: ExternalAddress{31: 0xaa}})
	packet := &GovernancePacket{Module: GovernanceModuleTokenBridge, Action: GovActionRegisterChain, Data: data}
	vaa := govVAAUnsigned(t, defaultGovernanceEmitter(), 1, packet)

	if err := ExecuteGovernanceVAA(vaa, 0, 86400); err != ErrNoQuorum {
		t.Fatalf("expected ErrNoQuorum for an unsigned governance vaa, got %v", err)
	}
	if _, err := GetChainContract(2); err == nil {
		t.Fatalf("expected RegisterChain to not execute for an unsigned governance vaa")
	}
}

func TestExecuteGovernanceRejectsCorruptedSignature(t *testing.T) {
	resetStoreForTest()
	Configure(BridgeConfig{ThisChain: 5, GovernanceChain: 1, GovernanceEmitter: defaultGovernanceEmitter(), ExpirationWindow: 86400})
	guardians := installTestGuardianSet(t, 1)
	impostor := newGuardianKey(t)

	data := EncodeRegisterChainData(&RegisterChainGovernanceData{ChainID: 2, Address: ExternalAddress{31: 0xaa}})
	packet := &GovernancePacket{Module: GovernanceModuleTokenBridge, Action: GovActionRegisterChain, Data: data}
	body := EncodeBody(1, 1, 1, defaultGovernanceEmitter(), 1, 1, EncodeGovernancePacket(packet))
	raw := buildVAA(t, []*ecdsaPrivKey{impostor}, []int{0}, body, 0)
	vaa, err := ParseVAA(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if err := ExecuteGovernanceVAA(vaa, 0, 86400); err != ErrGuardianSignatureError {
		t.Fatalf("expected ErrGuardianSignatureError for a vaa signed by a non-guardian, got %v", err)
	}
	if _, err := GetChainContract(2); err == nil {
		t.Fatalf("expected RegisterChain to not execute for a forged governance vaa")
	}
	_ = guardians
}

func TestExecuteGovernanceUnknownModule(t *testing.T) {
	resetStoreForTest()
	Configure(BridgeConfig{ThisChain: 5, GovernanceChain: 1, GovernanceEmitter: defaultGovernanceEmitter(), ExpirationWindow: 86400})
	guardians := installTestGuardianSet(t, 1)

	packet := &GovernancePacket{Module: "Nonsense", Action: 1, Data: nil}
	vaa := govVAA(t, guardians, defaultGovernanceEmitter(), 1, packet)

	if err := ExecuteGovernanceVAA(vaa, 0, 86400); err != ErrUnknownModule {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
}
