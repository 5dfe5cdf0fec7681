package core

// bridge_token_bridge.go – the token-bridge state machine (spec §4.D/§4.F):
// outgoing transfers (wrapped-burn or native-lock), incoming transfers
// (mint or unlock), and attestation; governance dispatch lives in
// bridge_governance.go. Grounded on the teacher's StartBridgeTransfer/
// CompleteBridgeTransfer pair in the original cross_chain_bridge.go (lock
// on the way out, mint on the way in) and RegisterChainContract's
// check-then-persist idiom, now driven off VAA payloads instead of direct
// RPC parameters.

import (
	"go.uber.org/zap"
)

// outgoingSequenceKey tracks the next sequence this chain's token bridge
// will assign to an outgoing message, keyed by its own emitter identity.
const outgoingSequenceKey = "bridge:outgoing_sequence"

func nextOutgoingSequence() (uint64, error) {
	raw, err := CurrentStore().Get([]byte(outgoingSequenceKey))
	var seq uint64
	if err == nil {
		seq = decodeUint64(raw)
	}
	seq++
	if err := CurrentStore().Set([]byte(outgoingSequenceKey), encodeUint64(seq)); err != nil {
		return 0, err
	}
	return seq, nil
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func decodeUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// OutgoingTransferRequest describes a caller's request to send value to
// another chain (spec §4.F).
type OutgoingTransferRequest struct {
	Sender         Address
	TokenChain     uint16
	TokenAddress   ExternalAddress
	Amount         *NormalizedAmount
	RecipientChain uint16
	Recipient      ExternalAddress
	Fee            *NormalizedAmount
	Nonce          uint32
	ExtraPayload   []byte // non-nil selects TRANSFER_WITH_PAYLOAD
}

// OutgoingTransferResult is the unsigned VAA body a guardian set must
// observe and sign to complete the transfer on the destination chain.
type OutgoingTransferResult struct {
	Sequence uint64
	Body     []byte
}

// InitiateTransfer executes the outgoing half of a transfer: it escrows the
// asset on this chain (burning a wrapped token or locking a native asset)
// and assembles the VAA body a guardian set must sign for the destination
// chain to honor. Sentinel-prefixed bank-denom tokens have no branch of
// their own: they are escrowed by whichever of those two paths their
// registered asset record selects. now is the
// wall-clock second to stamp into the VAA body's timestamp field.
func InitiateTransfer(req *OutgoingTransferRequest, now uint32) (*OutgoingTransferResult, error) {
	logger := zap.L().Sugar()

	if err := beginOutgoingTransfer(); err != nil {
		return nil, err
	}
	defer endOutgoingTransfer()

	cfg := CurrentConfig()
	if req.Sender == AddressZero {
		return nil, ErrZeroAddress
	}
	if req.RecipientChain == cfg.ThisChain {
		return nil, ErrSameSourceAndTarget
	}
	if req.Amount == nil || req.Amount.IsZero() {
		return nil, ErrAmountTooLow
	}
	if req.Fee != nil && req.Fee.Cmp(req.Amount) > 0 {
		return nil, ErrFeeGreaterThanAmount
	}
	if req.Amount.HighBitsSet() {
		return nil, ErrAmountTooHigh
	}

	if err := escrowOutgoing(req); err != nil {
		return nil, err
	}

	fee := req.Fee
	if fee == nil {
		fee = ZeroAmount()
	}

	var payload []byte
	if req.ExtraPayload != nil {
		payload = EncodeTransferWithPayloadPayload(&TransferWithPayloadPayload{
			Amount:         req.Amount,
			TokenChain:     req.TokenChain,
			TokenAddress:   req.TokenAddress,
			RecipientChain: req.RecipientChain,
			Recipient:      req.Recipient,
			Sender:         ExternalAddressFromLocal(req.Sender),
			ExtraPayload:   req.ExtraPayload,
		})
	} else {
		payload = EncodeTransferPayload(&TransferPayload{
			Amount:         req.Amount,
			TokenChain:     req.TokenChain,
			TokenAddress:   req.TokenAddress,
			RecipientChain: req.RecipientChain,
			Recipient:      req.Recipient,
			Fee:            fee,
		})
	}

	seq, err := nextOutgoingSequence()
	if err != nil {
		return nil, err
	}

	body := EncodeBody(now, req.Nonce, cfg.ThisChain, thisChainEmitter(), seq, 1, payload)
	logger.Infof("initiated outgoing transfer seq=%d to chain=%d amount=%s", seq, req.RecipientChain, req.Amount.Bytes32())
	BroadcastEvent("bridge:transfer_initiated", map[string]any{"sequence": seq, "recipient_chain": req.RecipientChain})
	return &OutgoingTransferResult{Sequence: seq, Body: body}, nil
}

// thisChainEmitter is the token bridge's own emitter identity: the module
// address this package's state lives at, in its 32-byte external form.
func thisChainEmitter() ExternalAddress {
	return ExternalAddressFromLocal(ModuleAddress("token_bridge"))
}

// escrowOutgoing performs the asset-custody side effect for an outgoing
// transfer: burn a wrapped asset, or lock a native asset in the bridge's
// custody account.
func escrowOutgoing(req *OutgoingTransferRequest) error {
	asset, err := GetWrappedAsset(req.TokenChain, req.TokenAddress)
	if err != nil {
		return err
	}
	if asset.IsNative {
		return lockNativeCustody(asset.LocalHandle, req.Sender, req.Amount)
	}
	token, ok := LookupWrappedToken(asset.LocalHandle)
	if !ok {
		return ErrMissingWrappedAccount
	}
	_, err = token.Burn(req.Sender, req.Amount)
	return err
}

func custodyKey(token Address) []byte {
	return []byte("custody:" + token.String())
}

// lockNativeCustody escrows amount of a native asset into this chain's
// bridge custody account. The actual debit from the sender's own balance is
// the host chain's responsibility (this package only tracks what the
// bridge itself holds in trust); this call records custody growth so
// CompleteTransfer's unlock half can assert sufficient backing.
func lockNativeCustody(token Address, from Address, amount *NormalizedAmount) error {
	raw, err := CurrentStore().Get(custodyKey(token))
	var bal *NormalizedAmount
	if err == nil {
		bal, err = AmountFromBytes32(raw)
		if err != nil {
			return err
		}
	} else {
		bal = ZeroAmount()
	}
	bal = AddAmount(bal, amount)
	b32 := bal.Bytes32()
	return CurrentStore().Set(custodyKey(token), b32[:])
}

func unlockNativeCustody(token Address, to Address, amount *NormalizedAmount) error {
	raw, err := CurrentStore().Get(custodyKey(token))
	if err != nil {
		return ErrMissingNativeAccount
	}
	bal, err := AmountFromBytes32(raw)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return ErrMissingNativeAccount
	}
	bal = SubAmount(bal, amount)
	b32 := bal.Bytes32()
	return CurrentStore().Set(custodyKey(token), b32[:])
}

// DepositNativeCustody credits amount of a native asset into this chain's
// bridge custody account directly, without assembling an outgoing VAA body.
// This backs the admin-level "deposit" operation (spec §6): pre-funding
// bridge custody for a native asset ahead of the first incoming transfer
// that needs to unlock against it, or restoring custody after an incident.
func DepositNativeCustody(token Address, from Address, amount *NormalizedAmount) error {
	if from == AddressZero {
		return ErrZeroAddress
	}
	return lockNativeCustody(token, from, amount)
}

// WithdrawNativeCustody debits amount of a native asset out of this chain's
// bridge custody account directly (spec §6 "withdraw"), the administrative
// counterpart to DepositNativeCustody.
func WithdrawNativeCustody(token Address, to Address, amount *NormalizedAmount) error {
	if to == AddressZero {
		return ErrZeroAddress
	}
	return unlockNativeCustody(token, to, amount)
}

// CompleteTransfer executes the incoming half of a transfer: it verifies
// the VAA's emitter is the registered sibling bridge contract for its
// source chain, checks the message targets this chain, decodes the
// TRANSFER (or TRANSFER_WITH_PAYLOAD) payload, and mints or unlocks the
// asset to the recipient. redeemer is the account invoking completion; it
// may be the zero address only for an ATTEST_META payload, and for a
// payload transfer it must equal the encoded recipient (spec §4.D "only
// the recipient contract may redeem").
func CompleteTransfer(vaa *ParsedVAA, redeemer Address) error {
	cfg := CurrentConfig()
	logger := zap.L().Sugar()

	if redeemer == AddressZero && (len(vaa.Payload) == 0 || vaa.Payload[0] != ActionAttestMeta) {
		return ErrZeroAddress
	}
	if err := verifyEmitterIsSiblingBridge(vaa); err != nil {
		return err
	}
	if HasBeenExecuted(vaa.EmitterChain, vaa.EmitterAddress, vaa.Sequence) {
		return ErrVaaAlreadyExecuted
	}
	if len(vaa.Payload) == 0 {
		return ErrInvalidVAAAction
	}

	action := vaa.Payload[0]
	body := vaa.Payload[1:]

	switch action {
	case ActionTransfer:
		p, err := DecodeTransferPayload(body)
		if err != nil {
			return err
		}
		if p.Amount.HighBitsSet() || p.Fee.HighBitsSet() {
			return ErrAmountTooHigh
		}
		if p.RecipientChain != cfg.ThisChain {
			return ErrWrongTargetChain
		}
		to, err := p.Recipient.ToLocal()
		if err != nil {
			return err
		}
		if err := creditIncoming(p.TokenChain, p.TokenAddress, to, p.Amount, p.Fee, redeemer); err != nil {
			return err
		}
	case ActionTransferWithPayload:
		p, err := DecodeTransferWithPayloadPayload(body)
		if err != nil {
			return err
		}
		if p.Amount.HighBitsSet() {
			return ErrAmountTooHigh
		}
		if p.RecipientChain != cfg.ThisChain {
			return ErrWrongTargetChain
		}
		to, err := p.Recipient.ToLocal()
		if err != nil {
			return err
		}
		if to != redeemer {
			return ErrOnlyRecipientMayRedeem
		}
		if err := creditIncoming(p.TokenChain, p.TokenAddress, to, p.Amount, ZeroAmount(), redeemer); err != nil {
			return err
		}
	case ActionAttestMeta:
		p, err := DecodeAttestMetaPayload(body)
		if err != nil {
			return err
		}
		if _, err := AttestAsset(AssetMeta{
			TokenChain:   p.TokenChain,
			TokenAddress: p.TokenAddress,
			Decimals:     p.Decimals,
			Symbol:       p.Symbol,
			Name:         p.Name,
		}, cfg.ThisChain); err != nil {
			return err
		}
	default:
		return ErrInvalidVAAAction
	}

	if err := ClaimVAA(vaa.EmitterChain, vaa.EmitterAddress, vaa.Sequence, vaa.Digest); err != nil {
		return err
	}
	logger.Infof("completed vaa action=%d from chain=%d seq=%d", action, vaa.EmitterChain, vaa.Sequence)
	BroadcastEvent("bridge:transfer_completed", map[string]any{"emitter_chain": vaa.EmitterChain, "sequence": vaa.Sequence, "action": action})
	return nil
}

func verifyEmitterIsSiblingBridge(vaa *ParsedVAA) error {
	registered, err := GetChainContract(vaa.EmitterChain)
	if err != nil {
		return ErrInvalidEmitter
	}
	if registered != vaa.EmitterAddress {
		return ErrInvalidEmitter
	}
	return nil
}

// creditIncoming performs the mint-or-unlock side effect of an incoming
// transfer, net of fee, crediting the fee to redeemer as the relayer reward
// (spec §4.D).
func creditIncoming(tokenChain uint16, tokenAddress ExternalAddress, to Address, amount, fee *NormalizedAmount, redeemer Address) error {
	if fee.Cmp(amount) > 0 {
		return ErrFeeGreaterThanAmount
	}
	asset, err := GetWrappedAsset(tokenChain, tokenAddress)
	if err != nil {
		return err
	}
	net, err := TrySubAmount(amount, fee)
	if err != nil {
		return err
	}

	if asset.IsNative {
		if err := unlockNativeCustody(asset.LocalHandle, to, net); err != nil {
			return err
		}
		if !fee.IsZero() {
			if err := unlockNativeCustody(asset.LocalHandle, redeemer, fee); err != nil {
				return err
			}
		}
		return nil
	}

	token, ok := LookupWrappedToken(asset.LocalHandle)
	if !ok {
		return ErrMissingWrappedAccount
	}
	if err := token.Mint(to, net); err != nil {
		return err
	}
	if !fee.IsZero() {
		if err := token.Mint(redeemer, fee); err != nil {
			return err
		}
	}
	return nil
}

// InitiateAttest assembles the unsigned VAA body attesting a native asset's
// metadata to the rest of the network (spec §4.D).
func InitiateAttest(tokenAddress ExternalAddress, decimals uint8, symbol, name string, nonce uint32, now uint32) (*OutgoingTransferResult, error) {
	cfg := CurrentConfig()
	payload := EncodeAttestMetaPayload(&AttestMetaPayload{
		TokenAddress: tokenAddress,
		TokenChain:   cfg.ThisChain,
		Decimals:     decimals,
		Symbol:       symbol,
		Name:         name,
	})
	seq, err := nextOutgoingSequence()
	if err != nil {
		return nil, err
	}
	body := EncodeBody(now, nonce, cfg.ThisChain, thisChainEmitter(), seq, 1, payload)
	return &OutgoingTransferResult{Sequence: seq, Body: body}, nil
}
