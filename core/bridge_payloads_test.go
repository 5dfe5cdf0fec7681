package core

import "testing"

func TestTransferPayloadRoundTrip(t *testing.T) {
	var tokenAddr, recipient ExternalAddress
	tokenAddr[31] = 1
	recipient[31] = 2
	p := &TransferPayload{
		Amount:         AmountFromUint64(1000),
		TokenChain:     2,
		TokenAddress:   tokenAddr,
		RecipientChain: 5,
		Recipient:      recipient,
		Fee:            AmountFromUint64(10),
	}
	raw := EncodeTransferPayload(p)
	if raw[0] != ActionTransfer {
		t.Fatalf("expected action tag %d, got %d", ActionTransfer, raw[0])
	}
	back, err := DecodeTransferPayload(raw[1:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Amount.Cmp(p.Amount) != 0 || back.Fee.Cmp(p.Fee) != 0 {
		t.Fatalf("amount/fee mismatch")
	}
	if back.TokenChain != p.TokenChain || back.RecipientChain != p.RecipientChain {
		t.Fatalf("chain mismatch")
	}
	if back.TokenAddress != p.TokenAddress || back.Recipient != p.Recipient {
		t.Fatalf("address mismatch")
	}
}

func TestTransferWithPayloadRoundTrip(t *testing.T) {
	var tokenAddr, recipient, sender ExternalAddress
	tokenAddr[31] = 9
	recipient[31] = 8
	sender[31] = 7
	p := &TransferWithPayloadPayload{
		Amount:         AmountFromUint64(500),
		TokenChain:     3,
		TokenAddress:   tokenAddr,
		RecipientChain: 4,
		Recipient:      recipient,
		Sender:         sender,
		ExtraPayload:   []byte("hello bridge"),
	}
	raw := EncodeTransferWithPayloadPayload(p)
	back, err := DecodeTransferWithPayloadPayload(raw[1:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(back.ExtraPayload) != "hello bridge" {
		t.Fatalf("extra payload mismatch: %q", back.ExtraPayload)
	}
	if back.Sender != p.Sender {
		t.Fatalf("sender mismatch")
	}
}

func TestAttestMetaPayloadRoundTrip(t *testing.T) {
	var tokenAddr ExternalAddress
	tokenAddr[31] = 3
	p := &AttestMetaPayload{
		TokenAddress: tokenAddr,
		TokenChain:   2,
		Decimals:     18,
		Symbol:       "WETH",
		Name:         "Wrapped Ether",
	}
	raw := EncodeAttestMetaPayload(p)
	back, err := DecodeAttestMetaPayload(raw[1:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Symbol != "WETH" || back.Name != "Wrapped Ether" {
		t.Fatalf("symbol/name mismatch: %+v", back)
	}
	if back.Decimals != 18 {
		t.Fatalf("decimals mismatch")
	}
}

func TestGovernancePacketRoundTrip(t *testing.T) {
	data := EncodeRegisterChainData(&RegisterChainGovernanceData{ChainID: 4, Address: ExternalAddress{31: 0xaa}})
	p := &GovernancePacket{
		Module:      GovernanceModuleTokenBridge,
		Action:      GovActionRegisterChain,
		TargetChain: 0,
		Data:        data,
	}
	raw := EncodeGovernancePacket(p)
	back, err := DecodeGovernancePacket(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Module != GovernanceModuleTokenBridge {
		t.Fatalf("module mismatch: %q", back.Module)
	}
	if back.Action != GovActionRegisterChain {
		t.Fatalf("action mismatch")
	}
	rc, err := DecodeRegisterChainData(back.Data)
	if err != nil {
		t.Fatalf("decode register-chain data: %v", err)
	}
	if rc.ChainID != 4 {
		t.Fatalf("chain id mismatch")
	}
}

func TestGuardianSetUpgradeDataRoundTrip(t *testing.T) {
	addrs := []Address{{1}, {2}, {3}}
	raw := EncodeGuardianSetUpgradeData(&GuardianSetUpgradeData{NewIndex: 7, Addresses: addrs})
	back, err := DecodeGuardianSetUpgradeData(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.NewIndex != 7 || len(back.Addresses) != 3 {
		t.Fatalf("unexpected decode: %+v", back)
	}
	for i := range addrs {
		if back.Addresses[i] != addrs[i] {
			t.Fatalf("address %d mismatch", i)
		}
	}
}
