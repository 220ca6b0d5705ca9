package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacehunters/contracts/internal/descriptor"
	"github.com/spacehunters/contracts/internal/signer"
)

var signersCmd = &cobra.Command{
	Use:   "signers [network]",
	Short: "Show the account address behind each credential slot",
	Long: `Derive the address of every signing account. Without a network argument all
networks are listed. The sandbox shows the runner's development accounts.

Examples:
  toolchainctl signers
  toolchainctl signers bsc_testnet --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSigners,
}

func init() {
	rootCmd.AddCommand(signersCmd)
}

// networkSigners is the JSON rendering of one network's accounts.
type networkSigners struct {
	Network  string           `json:"network"`
	Sandbox  bool             `json:"sandbox,omitempty"`
	Accounts []signer.Account `json:"accounts"`
	Error    string           `json:"error,omitempty"`
}

func runSigners(cmd *cobra.Command, args []string) error {
	d, _, err := loadDescriptor(cmd)
	if err != nil {
		return err
	}

	networks := d.Networks()
	if len(args) == 1 {
		n, err := d.Network(args[0])
		if err != nil {
			return err
		}
		networks = []descriptor.Network{n}
	}

	var (
		all    []networkSigners
		failed int
	)
	for _, n := range networks {
		entry := networkSigners{Network: n.Name, Sandbox: n.IsSandbox()}
		var accounts []signer.Account
		if n.IsSandbox() {
			accounts, err = signer.SandboxAccounts(signer.SandboxChainID)
		} else {
			accounts, err = signer.Derive(n.Accounts)
		}
		if err != nil {
			entry.Error = err.Error()
			failed++
		}
		entry.Accounts = accounts
		all = append(all, entry)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		if err := printJSON(out, map[string]interface{}{"networks": all}); err != nil {
			return err
		}
	} else {
		w := newTable(out)
		printTableHeader(w, "NETWORK", "SLOT", "ADDRESS")
		for _, e := range all {
			if e.Error != "" {
				fmt.Fprintf(w, "%s\t-\t%s\n", e.Network, colorRed(e.Error))
				continue
			}
			for _, a := range e.Accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Network, a.Slot, a.Address.Hex())
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("could not derive signers for %d network(s)", failed)
	}
	return nil
}
