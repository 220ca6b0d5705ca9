package descriptor

import (
	"fmt"
	"strings"
)

// Mode selects how Build treats credentials that are missing or malformed.
type Mode string

const (
	// ModeStrict fails construction and names every missing reference.
	ModeStrict Mode = "strict"
	// ModeLenient logs a warning and passes an empty credential through.
	ModeLenient Mode = "lenient"
)

// ParseMode parses a validation mode. The empty string means strict.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStrict:
		return ModeStrict, nil
	case ModeLenient:
		return ModeLenient, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidMode, s, ModeStrict, ModeLenient)
	}
}

// Descriptor is the resolved toolchain configuration. It is built once and
// never mutated; every accessor returns a copy.
type Descriptor struct {
	mode         Mode
	compilers    []CompilerSetting
	signerSets   []SignerSet
	networks     []Network
	index        map[string]int
	reporting    Reporting
	verification Verification
}

// Mode returns the validation mode the descriptor was built with.
func (d *Descriptor) Mode() Mode { return d.mode }

// Compilers returns the declared compiler settings in declaration order.
func (d *Descriptor) Compilers() []CompilerSetting {
	return append([]CompilerSetting(nil), d.compilers...)
}

// Compiler returns the settings for one compiler version.
func (d *Descriptor) Compiler(version string) (CompilerSetting, bool) {
	for _, c := range d.compilers {
		if c.Version == version {
			return c, true
		}
	}
	return CompilerSetting{}, false
}

// NetworkNames returns network names in declaration order.
func (d *Descriptor) NetworkNames() []string {
	names := make([]string, len(d.networks))
	for i, n := range d.networks {
		names[i] = n.Name
	}
	return names
}

// Network looks a network up by name, ignoring case.
func (d *Descriptor) Network(name string) (Network, error) {
	i, ok := d.index[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
	}
	return d.networks[i].clone(), nil
}

// Networks returns every network in declaration order.
func (d *Descriptor) Networks() []Network {
	out := make([]Network, len(d.networks))
	for i, n := range d.networks {
		out[i] = n.clone()
	}
	return out
}

// Sandbox returns the forked sandbox network, if one is declared.
func (d *Descriptor) Sandbox() (Network, bool) {
	for _, n := range d.networks {
		if n.IsSandbox() {
			return n.clone(), true
		}
	}
	return Network{}, false
}

// SignerSet returns a declared signer set.
func (d *Descriptor) SignerSet(name string) (SignerSet, bool) {
	for _, s := range d.signerSets {
		if s.Name == name {
			return s.clone(), true
		}
	}
	return SignerSet{}, false
}

// Reporting returns the gas reporter settings.
func (d *Descriptor) Reporting() Reporting { return d.reporting }

// Verification returns the explorer verification settings.
func (d *Descriptor) Verification() Verification { return d.verification }
