// cmd/xbridge-cli/main.go – root CLI binary for the xchain token bridge.
// Assembles the command trees exported from cmd/cli into a single Cobra
// root, following the teacher's cmd/synnergy/main.go pattern of a thin
// package main wiring together library-level command trees.
package main

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/spf13/cobra"

	cli "xchain/cmd/cli"
	"xchain/core"
	"xchain/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xbridge-cli",
		Short: "Administer and inspect the xchain token bridge",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.GuardianSetCmd)
	rootCmd.AddCommand(cli.VAACmd)
	rootCmd.AddCommand(cli.XBridgeCmd)
	rootCmd.AddCommand(cli.XContractCmd)
	rootCmd.AddCommand(cli.GovernanceCmd)
	rootCmd.AddCommand(cli.AccountantCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the in-memory KV store and bridge configuration once per
// process invocation, mirroring the teacher's devnet-bootstrap command
// pattern of initialising package-level state before dispatching to a
// subcommand's RunE.
func bootstrap() error {
	if core.CurrentStore() == nil {
		core.SetStore(core.NewInMemoryStore())
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		// No config file on disk (common for a bare CLI invocation) is not
		// fatal; fall back to the package defaults already installed by
		// core.bridge_state.go.
		return nil
	}

	bc, err := cfg.ToBridgeConfig()
	if err != nil {
		return err
	}

	emitter, err := decodeExternalAddressHex(bc.GovernanceEmitter)
	if err != nil {
		// Empty/invalid governance_emitter in the config leaves the
		// compiled-in default (chain-1, address ...0004) in place.
		cur := core.CurrentConfig()
		core.Configure(core.BridgeConfig{
			ThisChain:         bc.ThisChain,
			GovernanceChain:   cur.GovernanceChain,
			GovernanceEmitter: cur.GovernanceEmitter,
			ExpirationWindow:  bc.ExpirationWindow,
		})
		return nil
	}

	core.Configure(core.BridgeConfig{
		ThisChain:         bc.ThisChain,
		GovernanceChain:   bc.GovernanceChain,
		GovernanceEmitter: emitter,
		ExpirationWindow:  bc.ExpirationWindow,
	})
	return nil
}

func decodeExternalAddressHex(s string) (core.ExternalAddress, error) {
	var out core.ExternalAddress
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, hex.ErrLength
	}
	copy(out[:], raw)
	return out, nil
}
