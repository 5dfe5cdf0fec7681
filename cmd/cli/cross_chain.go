// cmd/cli/cross_chain.go – Cobra CLI for guardian set administration and VAA
// inspection.
// -----------------------------------------------------------------
// Layout of this file
//   - Middleware                 – ensures the KV store is initialised
//   - Controller                 – thin wrapper around core helpers
//   - CLI command declarations   – quick reference at the top
//   - Consolidation & export     – `guardian-set` and `vaa` exported as
//     top-level commands for the `xbridge-cli` root
//
// Example usage once registered in the main CLI:
//
//	$ xbridge-cli guardian-set get
//	$ xbridge-cli guardian-set set 1 0xaaaa...,0xbbbb...
//	$ xbridge-cli vaa parse 01000000...
//
// -----------------------------------------------------------------
package cli

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	core "xchain/core"
)

//---------------------------------------------------------------------
// Middleware – executed for every guardian-set/vaa command
//---------------------------------------------------------------------

func ensureXChainInitialised(cmd *cobra.Command, _ []string) error {
	if core.CurrentStore() == nil {
		return errors.New("cross-chain KV store not initialised")
	}
	return nil
}

//---------------------------------------------------------------------
// Controller – user-facing façade
//---------------------------------------------------------------------

type GuardianSetController struct{}

func (c *GuardianSetController) Get() (*core.GuardianSet, error) { return core.CurrentGuardianSet() }

func (c *GuardianSetController) Set(index uint32, addrs []core.Address, expirationWindow int64) error {
	return core.SetGuardianSet(&core.GuardianSet{Index: index, Addresses: addrs}, time.Now().Unix(), expirationWindow)
}

type VAAController struct{}

func (c *VAAController) Parse(raw []byte) (*core.ParsedVAA, error) { return core.ParseVAA(raw) }

//---------------------------------------------------------------------
// CLI command declarations – grouped for quick scan
//---------------------------------------------------------------------

var guardianSetCmd = &cobra.Command{
	Use:               "guardian-set",
	Short:             "Inspect and rotate the guardian quorum",
	PersistentPreRunE: ensureXChainInitialised,
}

var guardianSetGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current guardian set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl := &GuardianSetController{}
		gs, err := ctrl.Get()
		if err != nil {
			return err
		}
		enc, _ := json.MarshalIndent(gs, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(enc))
		return nil
	},
}

var guardianSetSetCmd = &cobra.Command{
	Use:   "set <index> <addr1,addr2,...> [expiration_window_seconds]",
	Short: "Install a new guardian set, expiring the previous one after the window",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid index: %w", err)
		}
		var addrs []core.Address
		for _, raw := range strings.Split(args[1], ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			a, err := core.ParseAddress(raw)
			if err != nil {
				return err
			}
			addrs = append(addrs, a)
		}
		window := int64(86400)
		if len(args) == 3 {
			w, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid expiration window: %w", err)
			}
			window = w
		}
		ctrl := &GuardianSetController{}
		if err := ctrl.Set(uint32(index), addrs, window); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "guardian set %d installed with %d guardians\n", index, len(addrs))
		return nil
	},
}

var vaaCmd = &cobra.Command{
	Use:   "vaa",
	Short: "Inspect VAA envelopes",
}

var vaaParseCmd = &cobra.Command{
	Use:   "parse <hex_bytes>",
	Short: "Decode a VAA envelope and print its fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
		if err != nil {
			return fmt.Errorf("invalid hex: %w", err)
		}
		ctrl := &VAAController{}
		vaa, err := ctrl.Parse(raw)
		if err != nil {
			return err
		}
		enc, _ := json.MarshalIndent(vaa, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(enc))
		return nil
	},
}

var vaaSubmitCmd = &cobra.Command{
	Use:   "submit <hex_bytes>",
	Short: "Verify a VAA's signatures reach its guardian set's quorum, without applying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
		if err != nil {
			return fmt.Errorf("invalid hex: %w", err)
		}
		vaa, err := core.ParseVAA(raw)
		if err != nil {
			return err
		}
		gs, err := core.GetGuardianSet(vaa.GuardianSetIndex)
		if err != nil {
			return err
		}
		if err := core.VerifyVAA(vaa, gs, time.Now().Unix()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "digest=%s quorum_ok=true\n", vaa.Digest.String())
		return nil
	},
}

// hexDecodeArg strips an optional 0x prefix before decoding, the shared
// convention every xbridge-cli command uses for byte-string arguments.
func hexDecodeArg(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

//---------------------------------------------------------------------
// Consolidation & export
//---------------------------------------------------------------------

func init() {
	guardianSetCmd.AddCommand(guardianSetGetCmd)
	guardianSetCmd.AddCommand(guardianSetSetCmd)
	vaaCmd.AddCommand(vaaParseCmd, vaaSubmitCmd)
}

// Export for root-CLI import (rootCmd.AddCommand(cli.GuardianSetCmd))
var GuardianSetCmd = guardianSetCmd

// Export for root-CLI import (rootCmd.AddCommand(cli.VAACmd))
var VAACmd = vaaCmd
