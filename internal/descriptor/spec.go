package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spacehunters/contracts/internal/secrets"
)

// Spec is the raw, declarative toolchain document as read from config
// files. It carries references, never secret values.
type Spec struct {
	Compilers    []CompilerSpec   `mapstructure:"compilers" yaml:"compilers" validate:"required,min=1,dive"`
	SignerSets   []SignerSetSpec  `mapstructure:"signer_sets" yaml:"signer_sets" validate:"dive"`
	Networks     []NetworkSpec    `mapstructure:"networks" yaml:"networks" validate:"dive"`
	Reporting    ReportingSpec    `mapstructure:"reporting" yaml:"reporting"`
	Verification VerificationSpec `mapstructure:"verification" yaml:"verification"`
}

// CompilerSpec declares one compiler version.
type CompilerSpec struct {
	Version   string        `mapstructure:"version" yaml:"version" validate:"required,semver"`
	Optimizer OptimizerSpec `mapstructure:"optimizer" yaml:"optimizer"`
}

// OptimizerSpec holds optimizer settings for a compiler version.
type OptimizerSpec struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Runs    int  `mapstructure:"runs" yaml:"runs" validate:"required_if=Enabled true,gte=0"`
}

// SignerSetSpec is a named, ordered list of credential slots.
type SignerSetSpec struct {
	Name  string     `mapstructure:"name" yaml:"name" validate:"required"`
	Slots []SlotSpec `mapstructure:"slots" yaml:"slots" validate:"required,min=1,dive"`
}

// SlotSpec binds a slot name to a credential reference.
type SlotSpec struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
	Ref  string `mapstructure:"ref" yaml:"ref" validate:"required"`
}

// NetworkSpec declares one network endpoint. A network with a forking
// block is the local sandbox and needs no URL.
type NetworkSpec struct {
	Name      string       `mapstructure:"name" yaml:"name" validate:"required"`
	URL       string       `mapstructure:"url" yaml:"url,omitempty" validate:"required_without=Forking,omitempty,url"`
	ChainID   uint64       `mapstructure:"chain_id" yaml:"chain_id,omitempty"`
	SignerSet string       `mapstructure:"signer_set" yaml:"signer_set,omitempty"`
	Forking   *ForkingSpec `mapstructure:"forking" yaml:"forking,omitempty"`
}

// ForkingSpec pins the sandbox to a remote archive node at a block.
type ForkingSpec struct {
	URL         string `mapstructure:"url" yaml:"url" validate:"required,url"`
	BlockNumber uint64 `mapstructure:"block_number" yaml:"block_number" validate:"required"`
}

// ReportingSpec configures the gas cost reporter.
type ReportingSpec struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Currency string `mapstructure:"currency" yaml:"currency" validate:"required_if=Enabled true,omitempty,len=3,uppercase"`
}

// VerificationSpec configures explorer source verification.
type VerificationSpec struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

var validate = validator.New()

// Validate checks field formats and the cross-references between networks
// and signer sets. All problems are returned joined.
func (s *Spec) Validate() error {
	var errs []error

	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate spec: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, NewValidationError(fieldPath(fe), describe(fe)))
		}
	}

	sets := make(map[string]bool, len(s.SignerSets))
	for _, set := range s.SignerSets {
		if sets[set.Name] {
			errs = append(errs, NewValidationError("signer_sets."+set.Name, "declared more than once"))
		}
		sets[set.Name] = true
		slots := make(map[string]bool, len(set.Slots))
		for _, slot := range set.Slots {
			if slot.Name != "" && slots[slot.Name] {
				errs = append(errs, NewValidationError("signer_sets."+set.Name+"."+slot.Name, "slot declared more than once"))
			}
			slots[slot.Name] = true
			if err := secrets.Ref(slot.Ref).Validate(); err != nil && slot.Ref != "" {
				errs = append(errs, NewValidationError("signer_sets."+set.Name+"."+slot.Name, err.Error()))
			}
		}
	}

	seen := make(map[string]bool, len(s.Networks))
	sandboxes := 0
	for _, n := range s.Networks {
		key := strings.ToLower(n.Name)
		if seen[key] {
			errs = append(errs, &DuplicateNetworkError{Name: n.Name})
		}
		seen[key] = true

		if n.Forking != nil {
			sandboxes++
		} else if n.SignerSet == "" {
			errs = append(errs, NewValidationError("networks."+n.Name+".signer_set", "remote networks must reference a signer set"))
		}
		if n.SignerSet != "" && !sets[n.SignerSet] {
			errs = append(errs, &UnknownSignerSetError{Network: n.Name, SignerSet: n.SignerSet})
		}
	}
	if sandboxes > 1 {
		errs = append(errs, NewValidationError("networks", fmt.Sprintf("at most one sandbox network may fork, found %d", sandboxes)))
	}

	if s.Verification.APIKey != "" {
		if err := secrets.Ref(s.Verification.APIKey).Validate(); err != nil {
			errs = append(errs, NewValidationError("verification.api_key", err.Error()))
		}
	}

	return errors.Join(errs...)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_without":
		return "is required"
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	case "semver":
		return fmt.Sprintf("%q is not a semantic version", fe.Value())
	case "len":
		return fmt.Sprintf("must be %s characters", fe.Param())
	case "uppercase":
		return "must be upper case"
	case "min":
		return fmt.Sprintf("needs at least %s entries", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
