package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/spacehunters/contracts/internal/descriptor"
	"github.com/spacehunters/contracts/internal/netcheck"
	"github.com/spacehunters/contracts/internal/signer"
)

var credentialEnv = []string{
	"PRIVATE_KEY_DEPLOYER",
	"PRIVATE_KEY_ADMIN",
	"PRIVATE_KEY_USER1",
	"PRIVATE_KEY_USER2",
	"BSCSCAN_APIKEY",
}

// isolate runs the test in an empty directory with no credentials or
// toolchain overrides in the environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	for _, k := range credentialEnv {
		t.Setenv(k, "")
	}
	for _, k := range []string{"BAO_ADDR", "BAO_TOKEN", "TOOLCHAIN_OPENBAO_ADDRESS", "TOOLCHAIN_VALIDATION", "TOOLCHAIN_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("PRIVATE_KEY_DEPLOYER", signer.SandboxPrivateKeys[0])
	t.Setenv("PRIVATE_KEY_ADMIN", signer.SandboxPrivateKeys[1])
	t.Setenv("PRIVATE_KEY_USER1", signer.SandboxPrivateKeys[2])
	t.Setenv("PRIVATE_KEY_USER2", signer.SandboxPrivateKeys[3])
	t.Setenv("BSCSCAN_APIKEY", "bscscan-key")
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestConfigValidate_Strict(t *testing.T) {
	isolate(t)
	t.Setenv("PRIVATE_KEY_DEPLOYER", signer.SandboxPrivateKeys[0])

	out, _, err := execute(t, "config", "validate")
	require.Error(t, err)
	assert.ErrorIs(t, err, descriptor.ErrMissingSecret)

	for _, name := range []string{"PRIVATE_KEY_ADMIN", "PRIVATE_KEY_USER1", "PRIVATE_KEY_USER2", "BSCSCAN_APIKEY"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "PRIVATE_KEY_DEPLOYER")
}

func TestConfigValidate_Lenient(t *testing.T) {
	isolate(t)

	out, stderr, err := execute(t, "config", "validate", "--lenient")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "lenient")
	assert.Contains(t, stderr, "PRIVATE_KEY_ADMIN", "missing secrets are logged")
}

func TestConfigValidate_JSON(t *testing.T) {
	isolate(t)
	setCredentials(t)

	out, _, err := execute(t, "config", "validate", "--json")
	require.NoError(t, err)

	var resp struct {
		Valid    bool     `json:"valid"`
		Mode     string   `json:"mode"`
		Networks []string `json:"networks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, "strict", resp.Mode)
	assert.Len(t, resp.Networks, 9)
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	isolate(t)
	setCredentials(t)

	out, _, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "0.8.9")
	assert.Contains(t, out, "<redacted:PRIVATE_KEY_DEPLOYER>")
	assert.NotContains(t, out, signer.SandboxPrivateKeys[0])
	assert.NotContains(t, out, "bscscan-key")

	out, _, err = execute(t, "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, signer.SandboxPrivateKeys[0])
	assert.Contains(t, out, `"present": true`)
}

func TestConfigExport(t *testing.T) {
	dir := isolate(t)
	setCredentials(t)

	out, _, err := execute(t, "config", "export")
	require.NoError(t, err)

	var doc descriptor.RunnerConfig
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Solidity.Compilers, 2)
	assert.Equal(t, "<redacted:PRIVATE_KEY_ADMIN>", doc.Networks["goerli"].Accounts[1])
	assert.Equal(t, uint64(421611), doc.Networks["arbitrum_rinkeby"].ChainID)
	require.NotNil(t, doc.Networks["hardhat"].Forking)
	assert.Equal(t, uint64(13637023), doc.Networks["hardhat"].Forking.BlockNumber)
	assert.Empty(t, doc.Networks["hardhat"].Accounts)
	assert.True(t, doc.GasReporter.Enabled)
	assert.Equal(t, "USD", doc.GasReporter.Currency)

	path := filepath.Join(dir, "runner.yaml")
	_, _, err = execute(t, "config", "export", "--format", "yaml", "--reveal-secrets", "-o", path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var revealed descriptor.RunnerConfig
	require.NoError(t, yaml.Unmarshal(raw, &revealed))
	assert.Equal(t, signer.SandboxPrivateKeys[1], revealed.Networks["kovan"].Accounts[1])
	assert.Equal(t, "bscscan-key", revealed.Etherscan.APIKey)
}

func TestConfigExport_UnsupportedFormat(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "config", "export", "--format", "toml")
	assert.Error(t, err)
}

func TestNetworksList(t *testing.T) {
	isolate(t)
	setCredentials(t)

	out, _, err := execute(t, "networks", "list", "--json")
	require.NoError(t, err)

	var resp struct {
		Networks []networkRow `json:"networks"`
		Count    int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 9, resp.Count)
	assert.Equal(t, "rinkeby", resp.Networks[0].Name)
	assert.Equal(t, "hardhat", resp.Networks[6].Name)
	assert.True(t, resp.Networks[6].Sandbox)
	assert.Equal(t, uint64(13637023), resp.Networks[6].ForkBlock)
	assert.Equal(t, uint64(42161), resp.Networks[8].ChainID)

	out, _, err = execute(t, "networks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "arbitrum_mainnet")
	assert.Contains(t, out, "sandbox@13637023")
}

type stubClient struct{ chainID uint64 }

func (s stubClient) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(s.chainID), nil
}

func (s stubClient) HeaderByNumber(_ context.Context, n *big.Int) (*types.Header, error) {
	return &types.Header{Number: n}, nil
}

func (s stubClient) Close() {}

func TestNetworksCheck(t *testing.T) {
	dir := isolate(t)
	setCredentials(t)

	orig := dialer
	t.Cleanup(func() { dialer = orig })
	dialer = func(_ context.Context, rpcURL string) (netcheck.ChainClient, error) {
		switch {
		case strings.Contains(rpcURL, "arbitrum-mainnet"):
			return stubClient{chainID: 42161}, nil
		case strings.Contains(rpcURL, "arbitrum-rinkeby"):
			return stubClient{chainID: 1}, nil
		default:
			return stubClient{chainID: 97}, nil
		}
	}

	metricsFile := filepath.Join(dir, "toolchain.prom")
	out, _, err := execute(t, "networks", "check", "--json", "--metrics-file", metricsFile)
	require.Error(t, err, "arbitrum_rinkeby reports the wrong chain")

	var resp struct {
		RunID   uuid.UUID `json:"runId"`
		Results []struct {
			Network   string   `json:"network"`
			OK        bool     `json:"ok"`
			Error     string   `json:"error"`
			LatencyMs *float64 `json:"latencyMs"`
			Latency   any      `json:"latency"`
		} `json:"results"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Failed)
	assert.NotEqual(t, uuid.Nil, resp.RunID)
	require.Len(t, resp.Results, 9)
	for _, r := range resp.Results {
		require.NotNil(t, r.LatencyMs, r.Network)
		assert.GreaterOrEqual(t, *r.LatencyMs, 0.0)
		assert.Nil(t, r.Latency, "latency is only reported in milliseconds")
		if r.Network == "arbitrum_rinkeby" {
			assert.False(t, r.OK)
			assert.Contains(t, r.Error, "421611")
		} else {
			assert.True(t, r.OK, r.Network)
		}
	}

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `toolchain_network_up{network="arbitrum_rinkeby"} 0`)
	assert.Contains(t, string(metrics), `toolchain_network_up{network="hardhat"} 1`)
}

func TestSigners(t *testing.T) {
	isolate(t)
	setCredentials(t)

	out, _, err := execute(t, "signers", "bsc_testnet", "--json")
	require.NoError(t, err)

	var resp struct {
		Networks []networkSigners `json:"networks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Networks, 1)
	accounts := resp.Networks[0].Accounts
	require.Len(t, accounts, 4)
	assert.Equal(t, "deployer", accounts[0].Slot)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", accounts[0].Address.Hex())

	out, _, err = execute(t, "signers", "hardhat")
	require.NoError(t, err)
	assert.Contains(t, out, "sandbox-9")
	assert.Contains(t, out, "0xa0Ee7A142d267C1f36714E4a8F75612F20a79720")
}

func TestSigners_UnknownNetwork(t *testing.T) {
	isolate(t)
	setCredentials(t)

	_, _, err := execute(t, "signers", "mainnet")
	assert.True(t, errors.Is(err, descriptor.ErrNetworkNotFound))
}

func TestSigners_LenientMissingKey(t *testing.T) {
	isolate(t)
	t.Setenv("PRIVATE_KEY_DEPLOYER", signer.SandboxPrivateKeys[0])

	out, _, err := execute(t, "signers", "goerli", "--lenient")
	require.Error(t, err)
	assert.Contains(t, out, "admin")
}

func TestConfigValidate_OpaqueCredentials(t *testing.T) {
	isolate(t)
	t.Setenv("PRIVATE_KEY_DEPLOYER", "deployer-secret")
	t.Setenv("PRIVATE_KEY_ADMIN", "admin-secret")
	t.Setenv("PRIVATE_KEY_USER1", "user1-secret")
	t.Setenv("PRIVATE_KEY_USER2", "user2-secret")
	t.Setenv("BSCSCAN_APIKEY", "bscscan-key")

	out, stderr, err := execute(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid (strict mode")
	assert.Contains(t, stderr, "not a valid private key")

	_, _, err = execute(t, "config", "validate", "--check-keys")
	require.Error(t, err)
	assert.ErrorIs(t, err, descriptor.ErrInvalidCredential)
}

func TestConfigExport_ReplacesExistingFileMode(t *testing.T) {
	dir := isolate(t)
	setCredentials(t)

	path := filepath.Join(dir, "runner.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	require.NoError(t, os.Chmod(path, 0o644))

	_, _, err := execute(t, "config", "export", "--reveal-secrets", "-o", path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc descriptor.RunnerConfig
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, signer.SandboxPrivateKeys[0], doc.Networks["goerli"].Accounts[0])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp file left behind")
	}
}
