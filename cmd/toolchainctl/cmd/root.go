// Package cmd implements the toolchainctl commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/spacehunters/contracts/internal/config"
	"github.com/spacehunters/contracts/internal/descriptor"
)

var (
	cfgFile  string
	jsonOut  bool
	lenient  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "toolchainctl",
	Short: "Inspect and export the contract toolchain configuration",
	Long: `toolchainctl resolves the contract toolchain declaration (compilers, networks,
signing credentials, the forked sandbox) against the environment and hands
it to the contract runner.

Credentials are read from the process environment, a .env file, or OpenBao
(refs of the form bao:mount/path#field).

Examples:
  toolchainctl config validate
  toolchainctl config export --format json -o runner.json
  toolchainctl networks check --timeout 5s
  toolchainctl signers arbitrum_mainnet`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./toolchain.yaml or ./config/toolchain.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&lenient, "lenient", false, "log missing credentials instead of failing")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: cfgFile})
	if err != nil {
		return nil, err
	}
	if lenient {
		cfg.Validation = string(descriptor.ModeLenient)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// loadDescriptor builds the descriptor and returns it with the logger, which
// writes to the command's stderr.
func loadDescriptor(cmd *cobra.Command) (*descriptor.Descriptor, *slog.Logger, error) {
	return loadDescriptorWith(cmd, nil)
}

// loadDescriptorWith is loadDescriptor with a command-specific config override.
func loadDescriptorWith(cmd *cobra.Command, override func(*config.Config)) (*descriptor.Descriptor, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if override != nil {
		override(cfg)
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	d, err := cfg.Descriptor(cmd.Context(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build toolchain descriptor: %w", err)
	}
	return d, logger, nil
}
