package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spacehunters/contracts/internal/config"
	"github.com/spacehunters/contracts/internal/descriptor"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show, validate and export the toolchain configuration",
	Long: `Configuration commands.

Examples:
  toolchainctl config show
  toolchainctl config validate --lenient
  toolchainctl config export --format yaml -o runner.yaml
  toolchainctl config export --reveal-secrets | runner --config -`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every declared credential is present",
	Long: `Build the toolchain descriptor and report every missing credential.
Exits non-zero unless the configuration is complete.

Credential values are opaque; signer credentials that do not look like
private keys are only logged unless --check-keys is given.
With --lenient, problems are logged as warnings and the command succeeds.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the runner configuration document",
	Long: `Render the configuration document consumed by the contract runner.

Secrets are replaced by placeholders naming their reference unless
--reveal-secrets is given. Output files holding secrets are written with
mode 0600.`,
	Args: cobra.NoArgs,
	RunE: runConfigExport,
}

func init() {
	configValidateCmd.Flags().Bool("check-keys", false, "fail on signer credentials that are not hex private keys")

	configExportCmd.Flags().String("format", "json", "output format (json, yaml)")
	configExportCmd.Flags().Bool("reveal-secrets", false, "write credential values instead of placeholders")
	configExportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configExportCmd)

	rootCmd.AddCommand(configCmd)
}

// configView is the redacted JSON rendering of a descriptor.
type configView struct {
	Mode         descriptor.Mode              `json:"mode"`
	Compilers    []descriptor.CompilerSetting `json:"compilers"`
	Networks     []descriptor.Network         `json:"networks"`
	Reporting    descriptor.Reporting         `json:"reporting"`
	Verification descriptor.Verification      `json:"verification"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	d, _, err := loadDescriptor(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if jsonOut {
		return printJSON(out, configView{
			Mode:         d.Mode(),
			Compilers:    d.Compilers(),
			Networks:     d.Networks(),
			Reporting:    d.Reporting(),
			Verification: d.Verification(),
		})
	}

	fmt.Fprintf(out, "Validation:   %s\n", d.Mode())
	for _, c := range d.Compilers() {
		fmt.Fprintf(out, "Compiler:     %s (optimizer %s, %d runs)\n", c.Version, onOff(c.Optimizer.Enabled), c.Optimizer.Runs)
	}
	r := d.Reporting()
	fmt.Fprintf(out, "Gas reporter: %s (%s)\n", onOff(r.Enabled), r.Currency)
	fmt.Fprintf(out, "Explorer key: %s\n", formatCredential(d.Verification().APIKey))
	fmt.Fprintln(out)

	w := newTable(out)
	printTableHeader(w, "NETWORK", "SLOT", "CREDENTIAL")
	for _, n := range d.Networks() {
		if n.IsSandbox() {
			fmt.Fprintf(w, "%s\t-\t%s\n", n.Name, colorYellow("sandbox development accounts"))
			continue
		}
		for _, a := range n.Accounts {
			fmt.Fprintf(w, "%s\t%s\t%s\n", n.Name, a.Slot, formatCredential(a))
		}
	}
	return w.Flush()
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	checkKeys, _ := cmd.Flags().GetBool("check-keys")

	d, _, err := loadDescriptorWith(cmd, func(cfg *config.Config) {
		if checkKeys {
			cfg.CheckKeys = true
		}
	})
	out := cmd.OutOrStdout()

	if err != nil {
		var missing *descriptor.MissingSecretsError
		if errors.As(err, &missing) && !jsonOut {
			fmt.Fprintf(out, "%s Missing environment variables:\n", colorRed("✗"))
			for _, ref := range missing.Refs {
				fmt.Fprintf(out, "  - %s\n", ref)
			}
		}
		return err
	}

	networks := d.NetworkNames()
	if jsonOut {
		return printJSON(out, map[string]interface{}{
			"valid":    true,
			"mode":     d.Mode(),
			"networks": networks,
		})
	}

	fmt.Fprintf(out, "%s Configuration valid (%s mode, %d networks)\n", colorGreen("✓"), d.Mode(), len(networks))
	return nil
}

func runConfigExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	reveal, _ := cmd.Flags().GetBool("reveal-secrets")
	output, _ := cmd.Flags().GetString("output")

	format = strings.ToLower(format)
	if format != "json" && format != "yaml" && format != "yml" {
		return fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}

	d, _, err := loadDescriptor(cmd)
	if err != nil {
		return err
	}
	doc := d.Export(reveal)

	if output == "" {
		if err := encodeRunnerConfig(cmd.OutOrStdout(), format, doc); err != nil {
			return fmt.Errorf("failed to write runner configuration: %w", err)
		}
		return nil
	}

	if err := writeFileAtomic(output, func(w io.Writer) error {
		return encodeRunnerConfig(w, format, doc)
	}); err != nil {
		return fmt.Errorf("failed to write runner configuration: %w", err)
	}

	if !jsonOut {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Runner configuration written to %s\n", colorGreen("✓"), output)
	}
	return nil
}

func encodeRunnerConfig(w io.Writer, format string, doc descriptor.RunnerConfig) error {
	if format == "json" {
		return printJSON(w, doc)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// writeFileAtomic writes path through a 0600 temp file in the same directory
// and renames it into place, so an existing file never keeps wider
// permissions.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err := f.Chmod(0600); err != nil {
		_ = f.Close()
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func formatCredential(c descriptor.Credential) string {
	if c.Present() {
		return colorGreen(c.String())
	}
	return colorRed(c.String())
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
