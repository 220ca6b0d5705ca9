// Package descriptor holds the resolved, immutable toolchain descriptor: the
// compiler versions, network endpoints with their signing credentials, the
// forked sandbox, and the reporting and verification settings handed to the
// external contract runner.
package descriptor

import (
	"encoding/json"
	"fmt"

	"github.com/spacehunters/contracts/internal/secrets"
)

// Optimizer holds compiler optimizer settings.
type Optimizer struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Runs    int  `json:"runs" yaml:"runs"`
}

// CompilerSetting is a compiler version plus its optimizer settings.
type CompilerSetting struct {
	Version   string    `json:"version"`
	Optimizer Optimizer `json:"optimizer"`
}

// Forking pins a sandbox network to a remote archive node at a block.
type Forking struct {
	URL         string `json:"url" yaml:"url"`
	BlockNumber uint64 `json:"blockNumber" yaml:"blockNumber"`
}

// Slot binds a credential slot name to a reference.
type Slot struct {
	Name string      `json:"name"`
	Ref  secrets.Ref `json:"ref"`
}

// SignerSet is a named, ordered list of credential slots shared by networks.
type SignerSet struct {
	Name  string `json:"name"`
	Slots []Slot `json:"slots"`
}

func (s SignerSet) clone() SignerSet {
	s.Slots = append([]Slot(nil), s.Slots...)
	return s
}

// Credential is a resolved secret for one slot. Its value is only reachable
// through Value; String and JSON encoding never expose it.
type Credential struct {
	Slot  string
	Ref   secrets.Ref
	value string
}

// Value returns the secret.
func (c Credential) Value() string { return c.value }

// Present reports whether the secret resolved to a non-empty value.
func (c Credential) Present() bool { return c.value != "" }

// String implements fmt.Stringer without revealing the secret.
func (c Credential) String() string {
	if c.Present() {
		return fmt.Sprintf("<redacted:%s>", c.Ref)
	}
	return fmt.Sprintf("<missing:%s>", c.Ref)
}

// MarshalJSON implements json.Marshaler without revealing the secret.
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Slot    string      `json:"slot,omitempty"`
		Ref     secrets.Ref `json:"ref"`
		Present bool        `json:"present"`
	}{c.Slot, c.Ref, c.Present()})
}

// Network is a named endpoint with the credentials used to sign for it.
// ChainID is zero when the runner should ask the endpoint.
type Network struct {
	Name      string       `json:"name"`
	URL       string       `json:"url,omitempty"`
	ChainID   uint64       `json:"chainId,omitempty"`
	SignerSet string       `json:"signerSet,omitempty"`
	Accounts  []Credential `json:"accounts,omitempty"`
	Forking   *Forking     `json:"forking,omitempty"`
}

// IsSandbox reports whether the network is the local forked sandbox.
func (n Network) IsSandbox() bool { return n.Forking != nil }

func (n Network) clone() Network {
	n.Accounts = append([]Credential(nil), n.Accounts...)
	if n.Forking != nil {
		f := *n.Forking
		n.Forking = &f
	}
	return n
}

// Reporting configures the gas cost reporter.
type Reporting struct {
	Enabled  bool   `json:"enabled"`
	Currency string `json:"currency"`
}

// Verification configures explorer source verification.
type Verification struct {
	APIKey Credential `json:"apiKey"`
}
