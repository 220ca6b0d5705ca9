// Package secrets resolves credential references into secret values.
//
// A reference never carries the secret itself. A bare name such as
// PRIVATE_KEY_DEPLOYER (or env:PRIVATE_KEY_DEPLOYER) points at an environment
// variable; bao:<mount>/<path>#<field> points at a field of an OpenBao KV v2
// secret.
package secrets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Reference schemes.
const (
	SchemeEnv = "env"
	SchemeBao = "bao"
)

// DefaultBaoField is read when a bao reference names no field.
const DefaultBaoField = "value"

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Ref is an opaque pointer to a secret value.
type Ref string

// Resolver turns a reference into its secret value. An absent or empty
// secret is reported as ErrSecretNotFound.
type Resolver interface {
	Resolve(ctx context.Context, ref Ref) (string, error)
}

// Scheme returns the backend the reference points at.
func (r Ref) Scheme() string {
	s := string(r)
	if i := strings.Index(s, ":"); i > 0 {
		return s[:i]
	}
	return SchemeEnv
}

// Key returns the reference without its scheme prefix.
func (r Ref) Key() string {
	s := string(r)
	if i := strings.Index(s, ":"); i > 0 {
		return s[i+1:]
	}
	return s
}

// Validate checks the reference is well formed for its scheme.
func (r Ref) Validate() error {
	switch r.Scheme() {
	case SchemeEnv:
		if !envNamePattern.MatchString(r.Key()) {
			return fmt.Errorf("%w: %q is not an environment variable name", ErrInvalidRef, string(r))
		}
		return nil
	case SchemeBao:
		_, _, _, err := r.baoLocation()
		return err
	default:
		return fmt.Errorf("%w: unknown scheme %q", ErrInvalidRef, r.Scheme())
	}
}

// baoLocation splits a bao reference into mount, secret path and field.
func (r Ref) baoLocation() (mount, path, field string, err error) {
	key := r.Key()
	field = DefaultBaoField
	if i := strings.LastIndex(key, "#"); i >= 0 {
		field = key[i+1:]
		key = key[:i]
	}
	key = strings.Trim(key, "/")
	mount, path, ok := strings.Cut(key, "/")
	if !ok || mount == "" || path == "" || field == "" {
		return "", "", "", fmt.Errorf("%w: %q must look like bao:<mount>/<path>#<field>", ErrInvalidRef, string(r))
	}
	return mount, path, field, nil
}
