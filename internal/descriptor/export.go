package descriptor

// RunnerConfig is the document handed to the external contract runner. Its
// field names follow the runner's own configuration schema.
type RunnerConfig struct {
	Solidity    RunnerSolidity           `json:"solidity" yaml:"solidity"`
	Networks    map[string]RunnerNetwork `json:"networks" yaml:"networks"`
	GasReporter RunnerGasReporter        `json:"gasReporter" yaml:"gasReporter"`
	Etherscan   RunnerEtherscan          `json:"etherscan" yaml:"etherscan"`
}

// RunnerSolidity lists compiler versions.
type RunnerSolidity struct {
	Compilers []RunnerCompiler `json:"compilers" yaml:"compilers"`
}

// RunnerCompiler is one compiler entry.
type RunnerCompiler struct {
	Version  string                 `json:"version" yaml:"version"`
	Settings RunnerCompilerSettings `json:"settings" yaml:"settings"`
}

// RunnerCompilerSettings wraps the optimizer block.
type RunnerCompilerSettings struct {
	Optimizer Optimizer `json:"optimizer" yaml:"optimizer"`
}

// RunnerNetwork is one network entry.
type RunnerNetwork struct {
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`
	ChainID  uint64   `json:"chainId,omitempty" yaml:"chainId,omitempty"`
	Accounts []string `json:"accounts,omitempty" yaml:"accounts,omitempty"`
	Forking  *Forking `json:"forking,omitempty" yaml:"forking,omitempty"`
}

// RunnerGasReporter is the gas reporter block.
type RunnerGasReporter struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Currency string `json:"currency" yaml:"currency"`
}

// RunnerEtherscan is the explorer verification block.
type RunnerEtherscan struct {
	APIKey string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
}

// Export renders the runner document. Unless reveal is set every secret is
// replaced by a placeholder naming its reference.
func (d *Descriptor) Export(reveal bool) RunnerConfig {
	secret := func(c Credential) string {
		if reveal {
			return c.Value()
		}
		return c.String()
	}

	out := RunnerConfig{
		Networks: make(map[string]RunnerNetwork, len(d.networks)),
		GasReporter: RunnerGasReporter{
			Enabled:  d.reporting.Enabled,
			Currency: d.reporting.Currency,
		},
	}

	for _, c := range d.compilers {
		out.Solidity.Compilers = append(out.Solidity.Compilers, RunnerCompiler{
			Version:  c.Version,
			Settings: RunnerCompilerSettings{Optimizer: c.Optimizer},
		})
	}

	for _, n := range d.networks {
		rn := RunnerNetwork{URL: n.URL, ChainID: n.ChainID}
		for _, a := range n.Accounts {
			rn.Accounts = append(rn.Accounts, secret(a))
		}
		if n.Forking != nil {
			f := *n.Forking
			rn.Forking = &f
		}
		out.Networks[n.Name] = rn
	}

	if d.verification.APIKey.Ref != "" {
		out.Etherscan.APIKey = secret(d.verification.APIKey)
	}

	return out
}
