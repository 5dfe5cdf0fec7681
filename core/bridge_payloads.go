package core

// bridge_payloads.go – the token-bridge payload wire formats (spec §4.D/§4.F
// and §6): TRANSFER, ATTEST_META, TRANSFER_WITH_PAYLOAD, and the governance
// packet. Grounded on the VAA body codec in bridge_vaa.go, applying the same
// fixed-width big-endian encode/decode idiom one level down, to the
// token-bridge-specific action payloads the VAA carries as its opaque
// Payload field.

import (
	"bytes"
	"encoding/binary"
)

// Payload action tags (spec §4.D/§4.F).
const (
	ActionTransfer            = 1
	ActionAttestMeta          = 2
	ActionTransferWithPayload = 3
)

// TransferPayload is the decoded TRANSFER action body: normalized amount,
// token identity, recipient, fee (spec §4.D).
type TransferPayload struct {
	Amount        *NormalizedAmount
	TokenChain    uint16
	TokenAddress  ExternalAddress
	RecipientChain uint16
	Recipient     ExternalAddress
	Fee           *NormalizedAmount
}

// EncodeTransferPayload serializes a TRANSFER payload: action(1) |
// amount(32) | token_chain(2) | token_address(32) | recipient_chain(2) |
// recipient(32) | fee(32).
func EncodeTransferPayload(p *TransferPayload) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(ActionTransfer)
	amt := p.Amount.Bytes32()
	buf.Write(amt[:])
	binary.Write(buf, binary.BigEndian, p.TokenChain)
	buf.Write(p.TokenAddress[:])
	binary.Write(buf, binary.BigEndian, p.RecipientChain)
	buf.Write(p.Recipient[:])
	fee := p.Fee.Bytes32()
	buf.Write(fee[:])
	return buf.Bytes()
}

// DecodeTransferPayload parses a TRANSFER action payload (the tag byte must
// already have been consumed by the caller's dispatch).
func DecodeTransferPayload(raw []byte) (*TransferPayload, error) {
	if len(raw) != 32+2+32+2+32+32 {
		return nil, ErrTruncated
	}
	r := bytes.NewReader(raw)

	amtBuf := make([]byte, 32)
	r.Read(amtBuf)
	amount, err := AmountFromBytes32(amtBuf)
	if err != nil {
		return nil, err
	}

	var tokenChain, recipientChain uint16
	binary.Read(r, binary.BigEndian, &tokenChain)
	var tokenAddress ExternalAddress
	r.Read(tokenAddress[:])
	binary.Read(r, binary.BigEndian, &recipientChain)
	var recipient ExternalAddress
	r.Read(recipient[:])

	feeBuf := make([]byte, 32)
	r.Read(feeBuf)
	fee, err := AmountFromBytes32(feeBuf)
	if err != nil {
		return nil, err
	}

	return &TransferPayload{
		Amount:         amount,
		TokenChain:     tokenChain,
		TokenAddress:   tokenAddress,
		RecipientChain: recipientChain,
		Recipient:      recipient,
		Fee:            fee,
	}, nil
}

// TransferWithPayloadPayload is the decoded TRANSFER_WITH_PAYLOAD action
// body (spec §4.D): identical to TransferPayload but with an arbitrary
// caller payload in place of the fee field, and redeemable only by the
// recipient contract.
type TransferWithPayloadPayload struct {
	Amount         *NormalizedAmount
	TokenChain     uint16
	TokenAddress   ExternalAddress
	RecipientChain uint16
	Recipient      ExternalAddress
	Sender         ExternalAddress
	ExtraPayload   []byte
}

// EncodeTransferWithPayloadPayload serializes a TRANSFER_WITH_PAYLOAD
// payload: action(1) | amount(32) | token_chain(2) | token_address(32) |
// recipient_chain(2) | recipient(32) | sender(32) | payload(...).
func EncodeTransferWithPayloadPayload(p *TransferWithPayloadPayload) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(ActionTransferWithPayload)
	amt := p.Amount.Bytes32()
	buf.Write(amt[:])
	binary.Write(buf, binary.BigEndian, p.TokenChain)
	buf.Write(p.TokenAddress[:])
	binary.Write(buf, binary.BigEndian, p.RecipientChain)
	buf.Write(p.Recipient[:])
	buf.Write(p.Sender[:])
	buf.Write(p.ExtraPayload)
	return buf.Bytes()
}

// DecodeTransferWithPayloadPayload parses a TRANSFER_WITH_PAYLOAD payload.
func DecodeTransferWithPayloadPayload(raw []byte) (*TransferWithPayloadPayload, error) {
	const fixed = 32 + 2 + 32 + 2 + 32 + 32
	if len(raw) < fixed {
		return nil, ErrTruncated
	}
	r := bytes.NewReader(raw)

	amtBuf := make([]byte, 32)
	r.Read(amtBuf)
	amount, err := AmountFromBytes32(amtBuf)
	if err != nil {
		return nil, err
	}

	var tokenChain, recipientChain uint16
	binary.Read(r, binary.BigEndian, &tokenChain)
	var tokenAddress ExternalAddress
	r.Read(tokenAddress[:])
	binary.Read(r, binary.BigEndian, &recipientChain)
	var recipient, sender ExternalAddress
	r.Read(recipient[:])
	r.Read(sender[:])

	extra := make([]byte, r.Len())
	r.Read(extra)

	return &TransferWithPayloadPayload{
		Amount:         amount,
		TokenChain:     tokenChain,
		TokenAddress:   tokenAddress,
		RecipientChain: recipientChain,
		Recipient:      recipient,
		Sender:         sender,
		ExtraPayload:   extra,
	}, nil
}

// AttestMetaPayload is the decoded ATTEST_META action body (spec §4.D).
type AttestMetaPayload struct {
	TokenAddress ExternalAddress
	TokenChain   uint16
	Decimals     uint8
	Symbol       string
	Name         string
}

const (
	symbolFieldLen = 32
	nameFieldLen   = 32
)

// EncodeAttestMetaPayload serializes an ATTEST_META payload: action(1) |
// token_address(32) | token_chain(2) | decimals(1) | symbol(32, padded) |
// name(32, padded).
func EncodeAttestMetaPayload(p *AttestMetaPayload) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(ActionAttestMeta)
	buf.Write(p.TokenAddress[:])
	binary.Write(buf, binary.BigEndian, p.TokenChain)
	buf.WriteByte(p.Decimals)
	buf.Write(padString(p.Symbol, symbolFieldLen))
	buf.Write(padString(p.Name, nameFieldLen))
	return buf.Bytes()
}

// DecodeAttestMetaPayload parses an ATTEST_META action payload.
func DecodeAttestMetaPayload(raw []byte) (*AttestMetaPayload, error) {
	if len(raw) != 32+2+1+symbolFieldLen+nameFieldLen {
		return nil, ErrTruncated
	}
	r := bytes.NewReader(raw)
	var tokenAddress ExternalAddress
	r.Read(tokenAddress[:])
	var tokenChain uint16
	binary.Read(r, binary.BigEndian, &tokenChain)
	decimals, _ := r.ReadByte()

	symbolBuf := make([]byte, symbolFieldLen)
	r.Read(symbolBuf)
	nameBuf := make([]byte, nameFieldLen)
	r.Read(nameBuf)

	return &AttestMetaPayload{
		TokenAddress: tokenAddress,
		TokenChain:   tokenChain,
		Decimals:     decimals,
		Symbol:       unpadString(symbolBuf),
		Name:         unpadString(nameBuf),
	}, nil
}

func padString(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

func unpadString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return string(b)
	}
	return string(b[:i])
}

// Governance module/action tags (spec §4.F).
const (
	GovernanceModuleTokenBridge = "TokenBridge"

	GovActionRegisterChain    = 1
	GovActionUpgradeContract  = 2
)

// GovernanceModuleCore handles guardian-set rotation, dispatched separately
// from the token-bridge module table since it affects every module's
// signature verification, not just transfers.
const (
	GovernanceModuleCore = "Core"

	CoreActionGuardianSetUpgrade = 2
)

// GuardianSetUpgradeData is the action-specific data for
// CoreActionGuardianSetUpgrade: the new guardian set index and its member
// addresses.
type GuardianSetUpgradeData struct {
	NewIndex  uint32
	Addresses []Address
}

// EncodeGuardianSetUpgradeData serializes new_index(4) | count(1) |
// addresses(20 each).
func EncodeGuardianSetUpgradeData(d *GuardianSetUpgradeData) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, d.NewIndex)
	buf.WriteByte(byte(len(d.Addresses)))
	for _, a := range d.Addresses {
		buf.Write(a[:])
	}
	return buf.Bytes()
}

// DecodeGuardianSetUpgradeData parses CoreActionGuardianSetUpgrade data.
func DecodeGuardianSetUpgradeData(raw []byte) (*GuardianSetUpgradeData, error) {
	if len(raw) < 5 {
		return nil, ErrTruncated
	}
	r := bytes.NewReader(raw)
	var newIndex uint32
	binary.Read(r, binary.BigEndian, &newIndex)
	count, _ := r.ReadByte()
	if r.Len() != int(count)*20 {
		return nil, ErrTruncated
	}
	addrs := make([]Address, 0, count)
	for i := 0; i < int(count); i++ {
		var a Address
		r.Read(a[:])
		addrs = append(addrs, a)
	}
	return &GuardianSetUpgradeData{NewIndex: newIndex, Addresses: addrs}, nil
}

// GovernancePacket is the decoded governance VAA payload (spec §4.F): a
// fixed 32-byte module identifier, an action tag, the target chain (0 for
// "all chains"), and action-specific data.
type GovernancePacket struct {
	Module      string
	Action      uint8
	TargetChain uint16
	Data        []byte
}

const governanceModuleFieldLen = 32

// EncodeGovernancePacket serializes a governance packet: module(32, padded)
// | action(1) | target_chain(2) | data(...).
func EncodeGovernancePacket(p *GovernancePacket) []byte {
	buf := new(bytes.Buffer)
	buf.Write(padString(p.Module, governanceModuleFieldLen))
	buf.WriteByte(p.Action)
	binary.Write(buf, binary.BigEndian, p.TargetChain)
	buf.Write(p.Data)
	return buf.Bytes()
}

// DecodeGovernancePacket parses a governance VAA payload.
func DecodeGovernancePacket(raw []byte) (*GovernancePacket, error) {
	if len(raw) < governanceModuleFieldLen+1+2 {
		return nil, ErrTruncated
	}
	r := bytes.NewReader(raw)
	moduleBuf := make([]byte, governanceModuleFieldLen)
	r.Read(moduleBuf)
	action, _ := r.ReadByte()
	var targetChain uint16
	binary.Read(r, binary.BigEndian, &targetChain)
	data := make([]byte, r.Len())
	r.Read(data)

	return &GovernancePacket{
		Module:      unpadString(moduleBuf),
		Action:      action,
		TargetChain: targetChain,
		Data:        data,
	}, nil
}

// RegisterChainGovernanceData is the action-specific data for
// GovActionRegisterChain: the new sibling chain id and its bridge contract
// address.
type RegisterChainGovernanceData struct {
	ChainID uint16
	Address ExternalAddress
}

func EncodeRegisterChainData(d *RegisterChainGovernanceData) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, d.ChainID)
	buf.Write(d.Address[:])
	return buf.Bytes()
}

func DecodeRegisterChainData(raw []byte) (*RegisterChainGovernanceData, error) {
	if len(raw) != 2+32 {
		return nil, ErrTruncated
	}
	r := bytes.NewReader(raw)
	var chainID uint16
	binary.Read(r, binary.BigEndian, &chainID)
	var addr ExternalAddress
	r.Read(addr[:])
	return &RegisterChainGovernanceData{ChainID: chainID, Address: addr}, nil
}

// UpgradeContractGovernanceData is the action-specific data for
// GovActionUpgradeContract: the new contract's address on this chain.
type UpgradeContractGovernanceData struct {
	NewContract ExternalAddress
}

func EncodeUpgradeContractData(d *UpgradeContractGovernanceData) []byte {
	return append([]byte(nil), d.NewContract[:]...)
}

func DecodeUpgradeContractData(raw []byte) (*UpgradeContractGovernanceData, error) {
	if len(raw) != 32 {
		return nil, ErrTruncated
	}
	var addr ExternalAddress
	copy(addr[:], raw)
	return &UpgradeContractGovernanceData{NewContract: addr}, nil
}
