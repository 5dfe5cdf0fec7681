package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	core "xchain/core"
)

//---------------------------------------------------------------------
// Controller
//---------------------------------------------------------------------

type XContractController struct{}

func (c *XContractController) Get(chain uint16) (core.ExternalAddress, error) {
	return core.GetChainContract(chain)
}

func (c *XContractController) List() ([]core.RegisteredContract, error) { return core.ListChainContracts() }

type GovernanceController struct{}

func (c *GovernanceController) Execute(vaa *core.ParsedVAA) error {
	return core.ExecuteGovernanceVAA(vaa, time.Now().Unix(), core.CurrentConfig().ExpirationWindow)
}

type AccountantController struct{}

func (c *AccountantController) Balance(key core.AccountKey) (*core.NormalizedAmount, error) {
	return core.GetBalance(key)
}

func (c *AccountantController) SubmitVAA(vaa *core.ParsedVAA) error {
	gs, err := core.GetGuardianSet(vaa.GuardianSetIndex)
	if err != nil {
		return err
	}
	return core.SubmitVAA(vaa, gs, time.Now().Unix())
}

func (c *AccountantController) ModifyBalance(m *core.Modification) error {
	return core.ApplyModification(m)
}

func (c *AccountantController) SubmitObservations(items []core.ObservationBatchItem, guardianSetIndex uint32, guardianIndex uint8, sig [65]byte) ([]core.ObservationResult, error) {
	return core.SubmitObservations(items, guardianSetIndex, guardianIndex, sig)
}

//---------------------------------------------------------------------
// CLI Commands
//---------------------------------------------------------------------

// xcontract only reads sibling bridge contract registrations; binding a new
// one is a TokenBridge governance action (see governanceRegisterChainCmd),
// not a direct-call shortcut.
var xcontractCmd = &cobra.Command{Use: "xcontract", Short: "Inspect sibling bridge contract registrations"}

var xcontractGetCmd = &cobra.Command{
	Use:   "get <chain_id>",
	Short: "Retrieve a registered sibling bridge contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return err
		}
		ctrl := &XContractController{}
		addr, err := ctrl.Get(uint16(chain))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr.String())
		return nil
	},
}

var xcontractListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered sibling bridge contracts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := &XContractController{}
		lst, err := ctrl.List()
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(lst, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	xcontractCmd.AddCommand(xcontractGetCmd, xcontractListCmd)
}

// Export for root CLI import
var XContractCmd = xcontractCmd

//---------------------------------------------------------------------
// Governance CLI commands
//---------------------------------------------------------------------

var governanceCmd = &cobra.Command{Use: "governance", Short: "Execute governance VAAs"}

var governanceExecuteCmd = &cobra.Command{
	Use:   "execute <vaa_hex>",
	Short: "Decode and execute a governance VAA (RegisterChain, UpgradeContract, GuardianSetUpgrade)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaa, err := decodeVAAArg(args[0])
		if err != nil {
			return err
		}
		ctrl := &GovernanceController{}
		if err := ctrl.Execute(vaa); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "governance action executed")
		return nil
	},
}

var governanceRegisterChainCmd = &cobra.Command{
	Use:   "register-chain <vaa_hex>",
	Short: "Decode and execute a RegisterChain governance VAA",
	Args:  cobra.ExactArgs(1),
	RunE:  governanceExecuteCmd.RunE,
}

var governanceUpgradeContractCmd = &cobra.Command{
	Use:   "upgrade-contract <vaa_hex>",
	Short: "Decode and execute an UpgradeContract governance VAA",
	Args:  cobra.ExactArgs(1),
	RunE:  governanceExecuteCmd.RunE,
}

func init() {
	governanceCmd.AddCommand(governanceExecuteCmd, governanceRegisterChainCmd, governanceUpgradeContractCmd)
}

// Export for root CLI import
var GovernanceCmd = governanceCmd

//---------------------------------------------------------------------
// Accountant CLI commands
//---------------------------------------------------------------------

var accountantCmd = &cobra.Command{Use: "accountant", Short: "Inspect and drive the global accountant ledger"}

var accountantBalanceCmd = &cobra.Command{
	Use:   "balance <chain_id> <token_chain> <token_address>",
	Short: "Show the ledger balance for an (chain, token) account",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return err
		}
		tokenChain, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return err
		}
		tokenAddress, err := xbridgeParseExternalAddr(args[2])
		if err != nil {
			return err
		}
		ctrl := &AccountantController{}
		bal, err := ctrl.Balance(core.AccountKey{ChainID: uint16(chainID), TokenChain: uint16(tokenChain), TokenAddress: tokenAddress})
		if err != nil {
			return err
		}
		b32 := bal.Bytes32()
		fmt.Fprintln(cmd.OutOrStdout(), fmt.Sprintf("0x%x", b32))
		return nil
	},
}

var accountantSubmitVAACmd = &cobra.Command{
	Use:   "submit-vaas <vaa_hex>",
	Short: "Commit a signed transfer VAA directly to the ledger, bypassing per-observation aggregation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaa, err := decodeVAAArg(args[0])
		if err != nil {
			return err
		}
		ctrl := &AccountantController{}
		if err := ctrl.SubmitVAA(vaa); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "transfer committed")
		return nil
	},
}

var accountantModifyBalanceCmd = &cobra.Command{
	Use:   "modify-balance <sequence> <chain_id> <token_chain> <token_address> <add|sub> <amount> [reason]",
	Short: "Apply a governance-issued direct balance adjustment",
	Args:  cobra.RangeArgs(6, 7),
	RunE: func(cmd *cobra.Command, args []string) error {
		sequence, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		chainID, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return err
		}
		tokenChain, err := strconv.ParseUint(args[2], 10, 16)
		if err != nil {
			return err
		}
		tokenAddress, err := xbridgeParseExternalAddr(args[3])
		if err != nil {
			return err
		}
		var add bool
		switch args[4] {
		case "add":
			add = true
		case "sub":
			add = false
		default:
			return fmt.Errorf("direction must be \"add\" or \"sub\", got %q", args[4])
		}
		amount, err := xbridgeParseAmount(args[5])
		if err != nil {
			return err
		}
		reason := ""
		if len(args) == 7 {
			reason = args[6]
		}
		ctrl := &AccountantController{}
		m := &core.Modification{
			Sequence: sequence,
			Account:  core.AccountKey{ChainID: uint16(chainID), TokenChain: uint16(tokenChain), TokenAddress: tokenAddress},
			Add:      add,
			Amount:   amount,
			Reason:   reason,
		}
		if err := ctrl.ModifyBalance(m); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "modification applied")
		return nil
	},
}

// observationJSON is the wire shape of one batch entry accepted by
// accountantSubmitObservationCmd's observations_json argument.
type observationJSON struct {
	EmitterChain   uint16 `json:"emitter_chain"`
	EmitterAddress string `json:"emitter_address"`
	Sequence       uint64 `json:"sequence"`
	TxHash         string `json:"tx_hash"`
	TokenChain     uint16 `json:"token_chain"`
	TokenAddress   string `json:"token_address"`
	Amount         string `json:"amount"`
	RecipientChain uint16 `json:"recipient_chain"`
	Recipient      string `json:"recipient"`
}

func (j observationJSON) toBatchItem() (core.ObservationBatchItem, error) {
	var item core.ObservationBatchItem
	emitterAddress, err := xbridgeParseExternalAddr(j.EmitterAddress)
	if err != nil {
		return item, err
	}
	txHashBytes, err := hexDecodeArg(j.TxHash)
	if err != nil || len(txHashBytes) != 32 {
		return item, fmt.Errorf("tx_hash must be 32 bytes of hex")
	}
	var txHash core.Hash
	copy(txHash[:], txHashBytes)
	tokenAddress, err := xbridgeParseExternalAddr(j.TokenAddress)
	if err != nil {
		return item, err
	}
	amount, err := xbridgeParseAmount(j.Amount)
	if err != nil {
		return item, err
	}
	recipient, err := xbridgeParseExternalAddr(j.Recipient)
	if err != nil {
		return item, err
	}
	item.Key = core.TransferKey{EmitterChain: j.EmitterChain, EmitterAddress: emitterAddress, Sequence: j.Sequence}
	item.Observation = core.Observation{
		TxHash:         txHash,
		TokenChain:     j.TokenChain,
		TokenAddress:   tokenAddress,
		Amount:         amount,
		RecipientChain: j.RecipientChain,
		Recipient:      recipient,
	}
	return item, nil
}

var accountantSubmitObservationCmd = &cobra.Command{
	Use:   "submit-observations <guardian_set_index> <guardian_index> <signature_hex> <observations_json>",
	Short: "Record a batch of transfer observations, authenticated by one guardian signature over the whole batch",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		guardianSetIndex, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return err
		}
		guardianIndex, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil {
			return err
		}
		sigBytes, err := hexDecodeArg(args[2])
		if err != nil || len(sigBytes) != 65 {
			return fmt.Errorf("signature_hex must be 65 bytes of hex")
		}
		var sig [65]byte
		copy(sig[:], sigBytes)

		var raw []observationJSON
		if err := json.Unmarshal([]byte(args[3]), &raw); err != nil {
			return fmt.Errorf("observations_json: %w", err)
		}
		items := make([]core.ObservationBatchItem, 0, len(raw))
		for i, o := range raw {
			item, err := o.toBatchItem()
			if err != nil {
				return fmt.Errorf("observation %d: %w", i, err)
			}
			items = append(items, item)
		}

		ctrl := &AccountantController{}
		results, err := ctrl.SubmitObservations(items, uint32(guardianSetIndex), uint8(guardianIndex), sig)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(results, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	accountantCmd.AddCommand(accountantBalanceCmd, accountantSubmitVAACmd, accountantModifyBalanceCmd, accountantSubmitObservationCmd)
}

// Export for root CLI import
var AccountantCmd = accountantCmd

func decodeVAAArg(hexArg string) (*core.ParsedVAA, error) {
	raw, err := hexDecodeArg(hexArg)
	if err != nil {
		return nil, err
	}
	return core.ParseVAA(raw)
}
